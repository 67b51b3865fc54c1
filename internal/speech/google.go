package speech

import (
	"context"
	"fmt"
	"os"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/rs/zerolog"
)

// GoogleTTS synthesizes with Cloud Text-to-Speech. Credentials come from the
// environment (GOOGLE_APPLICATION_CREDENTIALS).
type GoogleTTS struct {
	synth  func(context.Context, *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)
	close  func() error
	cfg    Config
	format texttospeechpb.AudioEncoding
	log    zerolog.Logger
}

func NewGoogle(ctx context.Context, cfg Config, log zerolog.Logger) (*GoogleTTS, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating Google tts client: %w", err)
	}
	g := newGoogle(cfg, log, func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return client.SynthesizeSpeech(ctx, req)
	})
	g.close = client.Close
	return g, nil
}

func newGoogle(cfg Config, log zerolog.Logger, synth func(context.Context, *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)) *GoogleTTS {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	enc := texttospeechpb.AudioEncoding_MP3
	switch extFor(cfg.Format) {
	case "wav":
		enc = texttospeechpb.AudioEncoding_LINEAR16
	case "ogg":
		enc = texttospeechpb.AudioEncoding_OGG_OPUS
	}
	return &GoogleTTS{synth: synth, close: func() error { return nil }, cfg: cfg, format: enc, log: log}
}

func (g *GoogleTTS) Synthesize(ctx context.Context, text string) (string, error) {
	req := texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{
				Text: text,
			},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.cfg.Language,
			Name:         g.cfg.Voice,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_MALE,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: g.format,
		},
	}
	resp, err := g.synth(ctx, &req)
	if err != nil {
		return "", fmt.Errorf("synthesizing speech: %w", err)
	}
	path, err := artifactPath(g.cfg.OutputDir, extFor(g.cfg.Format))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, resp.GetAudioContent(), 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	g.log.Debug().Str("path", path).Int("bytes", len(resp.GetAudioContent())).Msg("speech synthesized")
	return path, nil
}

func (g *GoogleTTS) Close() error { return g.close() }
