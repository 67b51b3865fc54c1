package engine

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"ancestord/internal/normalize"
)

// Outcome is the result of a blocking generation. Text is always usable:
// on failure it holds SentinelUnavailable, Fallback is set and Err records
// the cause for logging.
type Outcome struct {
	Text     string
	Fallback bool
	Err      error
}

// Complete runs one generation to the end and returns the normalized text.
// It never fails: resource problems yield the unavailable sentinel.
func (e *Engine) Complete(ctx context.Context, prompt string, params Params) Outcome {
	text, _, err := e.generate(ctx, "complete", prompt, params, nil)
	if err != nil {
		e.fallbacks.Add(1)
		e.log.Warn().Err(err).Msg("generation failed; returning sentinel")
		return Outcome{Text: SentinelUnavailable, Fallback: true, Err: err}
	}
	return Outcome{Text: text}
}

// Stream returns a lazy sequence of cleaned snapshots. Each snapshot is the
// normalized output so far and extends the previous one. Generation starts
// when the sequence is first ranged over and holds the resource until it ends
// or the consumer stops. A failure before any snapshot yields exactly one
// SentinelUnavailable; a failure after partial output just ends the sequence.
// The sequence is single-use.
func (e *Engine) Stream(ctx context.Context, prompt string, params Params) iter.Seq[string] {
	var used atomic.Bool
	return func(yield func(string) bool) {
		if used.Swap(true) {
			return
		}
		stopped := false
		_, emitted, err := e.generate(ctx, "stream", prompt, params, func(snap string) bool {
			if !yield(snap) {
				stopped = true
				return false
			}
			return true
		})
		switch {
		case stopped:
			e.log.Debug().Msg("stream abandoned by consumer")
		case err == nil, emitted:
			if err != nil {
				e.log.Warn().Err(err).Msg("stream ended early after partial output")
			}
		case ctx.Err() != nil && errors.Is(err, context.Canceled):
			// caller is gone; nobody to tell
		default:
			e.fallbacks.Add(1)
			e.log.Warn().Err(err).Msg("stream failed; yielding sentinel")
			yield(SentinelUnavailable)
		}
	}
}

// generate holds the resource for one generation. onSnapshot, when set,
// receives each new cleaned snapshot and returns false to abandon.
func (e *Engine) generate(ctx context.Context, mode, prompt string, params Params, onSnapshot func(string) bool) (text string, emitted bool, err error) {
	params = params.withDefaults(e.opts.Params)
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		generationsTotal.WithLabelValues(mode, outcomeLabel(err)).Inc()
		e.generations.Add(1)
	}()

	release, err := e.acquire(ctx)
	if err != nil {
		return "", false, err
	}
	defer release()
	held := time.Now()
	defer func() { generationDuration.WithLabelValues(mode).Observe(time.Since(held).Seconds()) }()

	var raw strings.Builder
	var last string
	_, err = e.breaker.Execute(func() (any, error) {
		sess, err := e.session(ctx)
		if err != nil {
			return nil, err
		}
		final, err := sess.Generate(ctx, prompt, params, func(chunk string) error {
			raw.WriteString(chunk)
			if onSnapshot == nil {
				return nil
			}
			snap := normalize.Clean(completeRunes(raw.String()))
			if snap == "" || len(snap) <= len(last) || !strings.HasPrefix(snap, last) {
				return nil
			}
			last = snap
			emitted = true
			if !onSnapshot(snap) {
				return errAbandoned
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, errAbandoned) {
				return nil, errAbandoned
			}
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			e.dropSession(sess, err)
			return nil, err
		}
		if raw.Len() == 0 && final.Content != "" {
			raw.WriteString(final.Content)
		}
		return nil, nil
	})
	e.log.Debug().Str("mode", mode).Dur("waited", held.Sub(start)).Dur("took", time.Since(held)).Int("raw_bytes", raw.Len()).Msg("generation finished")
	if err != nil {
		return "", emitted, err
	}
	return normalize.Clean(strings.ToValidUTF8(raw.String(), "")), emitted, nil
}

// completeRunes trims an incomplete multi-byte sequence from the end of s and
// drops invalid bytes elsewhere.
func completeRunes(s string) string {
	end := len(s)
	for i := len(s) - 1; i >= 0 && i >= len(s)-utf8.UTFMax; i-- {
		if utf8.RuneStart(s[i]) {
			if !utf8.FullRuneInString(s[i:]) {
				end = i
			}
			break
		}
	}
	return strings.ToValidUTF8(s[:end], "")
}
