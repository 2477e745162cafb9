// gemai is a command-line AI assistant: one-shot text actions,
// screenshot analysis and an interactive chat room, backed by Gemini,
// OpenAI or any OpenAI-compatible gateway.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gemai/internal/config"
	"gemai/internal/history"
	"gemai/internal/logging"
)

var (
	flagVerbose bool
	flagConfig  string

	prefs config.Preferences
)

var rootCmd = &cobra.Command{
	Use:   "gemai",
	Short: "AI text assistant for the terminal",
	Long: `gemai wraps Gemini and OpenAI models into quick text actions:
ask questions, translate, fix grammar, rework tone, explain
screenshots, or hold a conversation in the chat room.

Configuration lives in ~/.gemai/config.json; API keys may also come
from GEMINI_API_KEY, OPENAI_API_KEY and OPENAI_BASE_URL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(flagVerbose); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		var err error
		prefs, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// openStore opens the history database under the settings directory.
func openStore() (*history.Store, error) {
	return history.Open(history.DefaultPath(config.Dir()))
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "preferences file (default ~/.gemai/config.json)")

	registerActionCommands(rootCmd)
	registerScreenshotCommands(rootCmd)
	registerUtilityCommands(rootCmd)
	registerChatCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
