package ancestor

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"ancestord/internal/conversation"
	"ancestord/internal/engine"
	"ancestord/pkg/types"
)

type fakeEngine struct {
	mu      sync.Mutex
	text    string
	snaps   []string
	prompts []string
	params  []engine.Params
}

func (f *fakeEngine) record(prompt string, p engine.Params) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.params = append(f.params, p)
	f.mu.Unlock()
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeEngine) Complete(_ context.Context, prompt string, p engine.Params) engine.Outcome {
	f.record(prompt, p)
	if f.text == SentinelUnavailable {
		return engine.Outcome{Text: f.text, Fallback: true, Err: errors.New("down")}
	}
	return engine.Outcome{Text: f.text}
}

func (f *fakeEngine) Stream(_ context.Context, prompt string, p engine.Params) iter.Seq[string] {
	f.record(prompt, p)
	return func(yield func(string) bool) {
		for _, s := range f.snaps {
			if !yield(s) {
				return
			}
		}
	}
}

func (f *fakeEngine) Warmup(context.Context) error { return nil }
func (f *fakeEngine) Ready() bool                  { return true }
func (f *fakeEngine) Status() types.EngineStatus   { return types.EngineStatus{Backend: "fake"} }

type fakeSynth struct {
	path  string
	err   error
	panic bool
	got   string
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) (string, error) {
	f.got = text
	if f.panic {
		panic("tts exploded")
	}
	return f.path, f.err
}

func newService(e Engine, synth Synthesizer) *Service {
	opts := Options{Persona: DefaultPersona, Logger: zerolog.Nop()}
	if synth != nil {
		opts.Synthesizer = synth
	}
	return New(e, opts)
}

func TestAsk_UsesLatestUserMessageWithPersona(t *testing.T) {
	fe := &fakeEngine{text: "Be patient, child."}
	s := newService(fe, nil)
	res, err := s.Ask(context.Background(), Request{
		Question: "ignored",
		Messages: []conversation.Message{
			{Role: conversation.RoleUser, Content: "old"},
			{Role: conversation.RoleAssistant, Content: "reply"},
			{Role: conversation.RoleUser, Content: " What is patience? "},
		},
		MaxTokens: 64,
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if res.Text != "Be patient, child." || res.Audio != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	want := DefaultPersona + "\n\nUser: What is patience?\nAssistant:"
	if fe.prompts[0] != want {
		t.Fatalf("prompt %q want %q", fe.prompts[0], want)
	}
	if fe.params[0].MaxTokens != 64 {
		t.Fatalf("max tokens not forwarded: %+v", fe.params[0])
	}
}

func TestAsk_NoUserMessageNeverTouchesEngine(t *testing.T) {
	fe := &fakeEngine{text: "x"}
	s := newService(fe, nil)
	for _, req := range []Request{
		{Messages: []conversation.Message{{Role: conversation.RoleSystem, Content: "s"}}},
		{Messages: []conversation.Message{{Role: conversation.RoleUser, Content: "   "}}},
		{Question: ""},
	} {
		if _, err := s.Ask(context.Background(), req); !conversation.IsNoUserMessage(err) {
			t.Fatalf("expected ErrNoUserMessage for %+v, got %v", req, err)
		}
		if _, err := s.AskStream(context.Background(), req); !conversation.IsNoUserMessage(err) {
			t.Fatalf("stream: expected ErrNoUserMessage for %+v, got %v", req, err)
		}
	}
	if fe.calls() != 0 {
		t.Fatalf("engine invoked %d times", fe.calls())
	}
}

func TestAsk_EmptyReplyBecomesNoResponse(t *testing.T) {
	s := newService(&fakeEngine{text: ""}, nil)
	res, err := s.Ask(context.Background(), Request{Question: "hi"})
	if err != nil || res.Text != SentinelNoResponse {
		t.Fatalf("got %+v err=%v", res, err)
	}
}

func TestAsk_UnavailablePassesThrough(t *testing.T) {
	s := newService(&fakeEngine{text: SentinelUnavailable}, nil)
	res, err := s.Ask(context.Background(), Request{Question: "hi"})
	if err != nil || res.Text != SentinelUnavailable {
		t.Fatalf("got %+v err=%v", res, err)
	}
}

func TestAsk_Audio(t *testing.T) {
	cases := []struct {
		name      string
		synth     *fakeSynth
		wantAudio bool
		want      string
	}{
		{"produced", &fakeSynth{path: "tts_output/a.wav"}, true, "tts_output/a.wav"},
		{"not requested", &fakeSynth{path: "tts_output/a.wav"}, false, ""},
		{"error absorbed", &fakeSynth{err: errors.New("quota")}, true, ""},
		{"panic absorbed", &fakeSynth{panic: true}, true, ""},
	}
	for _, c := range cases {
		s := newService(&fakeEngine{text: "Listen."}, c.synth)
		res, err := s.Ask(context.Background(), Request{Question: "hi", WantAudio: c.wantAudio})
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if res.Text != "Listen." || res.Audio != c.want {
			t.Fatalf("%s: got %+v", c.name, res)
		}
		if c.wantAudio && c.synth.got != "Listen." {
			t.Fatalf("%s: synthesizer got %q", c.name, c.synth.got)
		}
	}
	// no synthesizer configured
	res, _ := newService(&fakeEngine{text: "Listen."}, nil).Ask(context.Background(), Request{Question: "hi", WantAudio: true})
	if res.Audio != "" {
		t.Fatalf("audio without synthesizer: %+v", res)
	}
}

func TestAskStream_ForwardsSnapshots(t *testing.T) {
	fe := &fakeEngine{snaps: []string{"The", "The river", "The river flows."}}
	s := newService(fe, nil)
	seq, err := s.AskStream(context.Background(), Request{Question: "hi"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	var got []string
	for snap := range seq {
		got = append(got, snap)
	}
	if len(got) != 3 || got[2] != "The river flows." {
		t.Fatalf("got %q", got)
	}
}

func TestAskStream_EmptyYieldsNoResponseOnce(t *testing.T) {
	s := newService(&fakeEngine{}, nil)
	seq, err := s.AskStream(context.Background(), Request{Question: "hi"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	var got []string
	for snap := range seq {
		got = append(got, snap)
	}
	if len(got) != 1 || got[0] != SentinelNoResponse {
		t.Fatalf("got %q", got)
	}
}

func TestAskStream_ConsumerStop(t *testing.T) {
	s := newService(&fakeEngine{snaps: []string{"a", "ab", "abc"}}, nil)
	seq, _ := s.AskStream(context.Background(), Request{Question: "hi"})
	n := 0
	for range seq {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected to stop after first snapshot, got %d", n)
	}
}

func TestPrompt(t *testing.T) {
	if got := BuildPrompt("", "hi"); got != "User: hi\nAssistant:" {
		t.Fatalf("no persona: %q", got)
	}
	if got := BuildPrompt("Be kind.", "hi"); got != "Be kind.\n\nUser: hi\nAssistant:" {
		t.Fatalf("persona: %q", got)
	}
	cases := map[string]string{"": DefaultPersona, "none": "", "Elder.": "Elder."}
	for in, want := range cases {
		if got := ResolvePersona(in); got != want {
			t.Fatalf("ResolvePersona(%q)=%q", in, got)
		}
	}
}
