package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/genui/internal/state"
	"github.com/agentic-research/genui/internal/stream"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query [script.jsonl] [jsonpath]",
	Short: "Replay a script's data patches and query the resulting data model",
	Long: `query folds the script's dataPath patches into a fresh data model
(tree patches are applied but discarded) and evaluates a JSONPath
expression against the result, e.g.

  genui query session.jsonl '$.form.lineItems[*].sku'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer func() { _ = f.Close() }() // safe to ignore

		st := state.NewStore(nil)
		p := stream.New(stream.Options{OnData: st.ApplyPatch})
		if err := p.Run(cmd.Context(), f); err != nil {
			return fmt.Errorf("replay: %w", err)
		}

		results, err := st.Query(args[1])
		if err != nil {
			return err
		}
		fmt.Println(oj.JSON(results, &oj.Options{Indent: 2, Sort: true}))
		return nil
	},
}
