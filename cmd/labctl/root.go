package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRootCmd() *cobra.Command {
	var format string

	root := &cobra.Command{
		Use:   "labctl",
		Short: "Score prompts and preview variations offline",
		Long: `labctl runs the prompt-lab scoring and variation pipeline locally,
without a database or a running server.

  labctl score --prompt "What is DNS?" --text "DNS maps names to addresses."
  labctl generate --prompt "Explain recursion" --temperature 0.9 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")

	root.AddCommand(
		newScoreCmd(&format),
		newGenerateCmd(&format),
		newModelsCmd(&format),
	)
	return root
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported format %q (want yaml or json)", format)
	}
}
