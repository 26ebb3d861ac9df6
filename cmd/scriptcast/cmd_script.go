package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drewmudry/scriptcast/llm"
	"github.com/drewmudry/scriptcast/pipeline"
	"github.com/drewmudry/scriptcast/resolver"
)

var (
	scriptDebug  bool
	scriptOutput string
)

// scriptCmd resolves a topic into a narration script
var scriptCmd = &cobra.Command{
	Use:   "script <topic>",
	Short: "Generate a narration script for a topic",
	Long: `Generate a narration script for a topic.

Topics that need current facts are grounded on a web page found with search.
When no page holds the needed data the command prints the fallback message and
exits with an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScript,
}

func init() {
	scriptCmd.Flags().BoolVar(&scriptDebug, "debug", false, "Print the resolution trace as JSON")
	scriptCmd.Flags().StringVarP(&scriptOutput, "output", "o", "", "Write the script to a file instead of stdout")
}

func runScript(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	gen, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return err
	}
	res, err := pipeline.NewResolver(cfg, gen, logger)
	if err != nil {
		return err
	}

	result, err := res.Resolve(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	if scriptDebug {
		enc := json.NewEncoder(cmd.ErrOrStderr())
		enc.SetIndent("", "  ")
		enc.Encode(map[string]interface{}{
			"outcome":      result.Outcome.String(),
			"search_query": result.SearchQuery,
			"source":       result.Source,
			"trace":        result.Trace,
		})
	}

	if result.Outcome == resolver.OutcomeNoContext {
		fmt.Fprintln(cmd.OutOrStdout(), resolver.FallbackMessage)
		return pipeline.ErrNoContext
	}

	if scriptOutput != "" {
		return os.WriteFile(scriptOutput, []byte(result.Script), 0o644)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Script)
	return nil
}
