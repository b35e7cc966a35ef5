package main

import (
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/prompt-lab/internal/scoring"
)

func newScoreCmd(format *string) *cobra.Command {
	var prompt, text string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a response against its prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return write(cmd.OutOrStdout(), *format, scoring.Score(text, prompt))
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "prompt the response answers")
	cmd.Flags().StringVarP(&text, "text", "t", "", "response text to score")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}
