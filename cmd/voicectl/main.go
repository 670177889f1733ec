package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scriptpolish/scriptpolish-api/cmd/voicectl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "voicectl",
		Short: "Administration tool for ScriptPolish",
		Long:  "CLI tool for inspecting voice corpora, profiles, and the job queue",
	}

	rootCmd.AddCommand(commands.NewExamplesCmd())
	rootCmd.AddCommand(commands.NewProfileCmd())
	rootCmd.AddCommand(commands.NewAnalyzeCmd())
	rootCmd.AddCommand(commands.NewDLQCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
