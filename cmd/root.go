package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to HCL config file")
}

var rootCmd = &cobra.Command{
	Use:   "genui",
	Short: "genui: streaming generative-UI patch engine",
	Long: `genui consumes newline-delimited JSON patch streams and folds them
into UI trees, with a shared data model driving visibility conditions,
field validation and action execution.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
