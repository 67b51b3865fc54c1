package normalize

import (
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	cases := []struct{ name, in, want string }{
		{"empty", "", ""},
		{"only chatml opener", "<|im_start|>user\n", ""},
		{"punct spacing", "Hello,world!Bye", "Hello, world! Bye"},
		{"already clean", "Hello, world! Bye", "Hello, world! Bye"},
		{"chatml turn", "<|im_start|>assistant\nPeace be with you.<|im_end|>", "Peace be with you."},
		{"partial opener at edge", "Greetings<|im_start|>assis", "Greetings"},
		{"partial end marker", "Greetings, child<|im_e", "Greetings, child"},
		{"lone angle at edge", "Wisdom is patient <", "Wisdom is patient"},
		{"llama3 header", "<|start_header_id|>assistant<|end_header_id|>\n\nListen well.<|eot_id|>", "Listen well."},
		{"partial llama3 header", "Listen.<|start_header_id|>assist", "Listen."},
		{"sentencepiece eos", "Be kind.</s>", "Be kind."},
		{"collapse whitespace", "  a \n\n\t b   c  ", "a b c"},
		{"consecutive punct", "a!!b", "a! ! b"},
		{"nested markup", "x<|im_<|im_end|>end|>y", "xy"},
		{"markup glues punctuation", "Hi,<|im_end|>there", "Hi, there"},
		{"non marker angle kept", "1 < 2 and <b>", "1 < 2 and <b>"},
		{"unicode", "Ẹ kú àárọ̀,ọmọ mi", "Ẹ kú àárọ̀, ọmọ mi"},
	}
	for _, c := range cases {
		if got := Clean(c.in); got != c.want {
			t.Fatalf("%s: Clean(%q) = %q, want %q", c.name, c.in, got, c.want)
		}
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"<|im_start|>user\n",
		"Hello,world!Bye",
		"already clean text.",
		"a!!b??c,,d..e",
		"x <  ",
		"a< <",
		"<|im_start|>assistant\n  Hi there,friend.\n\n<|im_end|>\n<|im_start|>user\nmore",
		"<<|im_end|>|>",
		"tail with tab\t<|",
		"</s</s>>",
		"  ...  ",
		"a <\u00a0",
		"a <|im_end\u00a0",
		"a <\v",
		"a </s\u2003",
		"a <|\u0085",
		"a <\u3000\u2028",
	}
	for _, in := range inputs {
		once := Clean(in)
		twice := Clean(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestCleanDropsPartialMarkerBeforeUnicodeSpace(t *testing.T) {
	for _, in := range []string{"a <\u00a0", "a <|im_end\u00a0", "a <\v", "a </s\u2003", "a <|\u0085"} {
		if got := Clean(in); got != "a" {
			t.Fatalf("Clean(%q) = %q, want %q", in, got, "a")
		}
	}
}

func TestCleanGrowingBufferIsPrefixExtension(t *testing.T) {
	raw := "<|im_start|>assistant\nThe river,child,does not hurry.Yet it reaches the sea!<|im_end|>"
	prev := ""
	for i := 1; i <= len(raw); i++ {
		snap := Clean(raw[:i])
		if snap == "" {
			continue
		}
		if !strings.HasPrefix(snap, prev) {
			t.Fatalf("snapshot %q does not extend %q (at %d)", snap, prev, i)
		}
		prev = snap
	}
	if prev != "The river, child, does not hurry. Yet it reaches the sea!" {
		t.Fatalf("final snapshot = %q", prev)
	}
}

func TestStripMarkupLeavesText(t *testing.T) {
	if got := StripMarkup("plain"); got != "plain" {
		t.Fatalf("got %q", got)
	}
}
