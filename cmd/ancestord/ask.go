package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ancestord/internal/ancestor"
)

func newAskCmd(f *rootFlags) *cobra.Command {
	var stream, audio bool
	var maxTokens int
	cmd := &cobra.Command{
		Use:     "ask <question>",
		Short:   "Ask Ancestor one question from the terminal",
		Example: "  ancestord ask \"What is patience?\"\n  ancestord ask --stream \"Tell me about the baobab\"",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			log := newLogger(cfg.Log, cmd.ErrOrStderr())
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := buildApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			req := ancestor.Request{Question: strings.Join(args, " "), WantAudio: audio, MaxTokens: maxTokens}
			out := cmd.OutOrStdout()
			if stream {
				seq, err := a.svc.AskStream(ctx, req)
				if err != nil {
					return err
				}
				var prev string
				for snap := range seq {
					if strings.HasPrefix(snap, prev) {
						fmt.Fprint(out, snap[len(prev):])
					} else {
						fmt.Fprint(out, "\n", snap)
					}
					prev = snap
				}
				fmt.Fprintln(out)
				return nil
			}
			res, err := a.svc.Ask(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, res.Text)
			if res.Audio != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "audio:", res.Audio)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "Print the reply as it is generated")
	cmd.Flags().BoolVar(&audio, "audio", false, "Also synthesize speech with the configured TTS backend")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Override the configured max tokens")
	return cmd
}
