package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/genui/api"
	"github.com/agentic-research/genui/internal/state"
	"github.com/agentic-research/genui/internal/stream"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
)

var replayVerbose bool

func init() {
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "Print a line per applied patch")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay [script.jsonl]",
	Short: "Fold a recorded patch script into its final UI tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer func() { _ = f.Close() }() // safe to ignore

		st := state.NewStore(nil)
		applied := 0
		p := stream.New(stream.Options{
			OnSnapshot: func(t *api.Tree) {
				applied++
				if replayVerbose {
					fmt.Printf("patch %d: root=%q elements=%d\n", applied, t.Root, len(t.Elements))
				}
			},
			OnData: st.ApplyPatch,
		})
		if err := p.Run(cmd.Context(), f); err != nil {
			return fmt.Errorf("replay: %w", err)
		}

		fmt.Printf("Applied %d tree patches\n", applied)
		fmt.Println(oj.JSON(p.Tree(), &oj.Options{Indent: 2, Sort: true}))
		if model := st.Snapshot(); len(model) > 0 {
			fmt.Println("Data model:")
			fmt.Println(oj.JSON(model, &oj.Options{Indent: 2, Sort: true}))
		}
		return nil
	},
}
