package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/prompt-lab/internal/ai"
	"github.com/suPer8Hu/prompt-lab/internal/variation"
)

func newGenerateCmd(format *string) *cobra.Command {
	var prompt string
	params := variation.DefaultParams()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the three scored variations of a prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt = strings.TrimSpace(prompt)
			if prompt == "" {
				return errors.New("prompt must not be blank")
			}
			out := variation.NewGenerator(nil).Generate(prompt, params)
			return write(cmd.OutOrStdout(), *format, out)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&prompt, "prompt", "p", "", "prompt to vary")
	f.Float64Var(&params.Temperature, "temperature", variation.DefaultTemperature, "base temperature")
	f.Float64Var(&params.TopP, "top-p", variation.DefaultTopP, "nucleus sampling cutoff")
	f.IntVar(&params.MaxTokens, "max-tokens", variation.DefaultMaxTokens, "response token budget")
	f.StringVar(&params.Model, "model", variation.DefaultModel, "model name")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func newModelsCmd(format *string) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List registered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return write(cmd.OutOrStdout(), *format, ai.NewRegistry().Models())
		},
	}
}
