// Package cmd wires the docchat CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "docchat - chat with your documents from the terminal",
	Long: `docchat loads a web page, YouTube transcript, PDF, CSV or text file
and grounds a conversation on it, streaming replies from the provider
of your choice (Groq, OpenAI, Google AI or a local Ollama).

Running docchat without a subcommand starts the interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}
