package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	generatePlatform string
	generateOutDir   string
)

var generateCmd = &cobra.Command{
	Use:   "generate <description>",
	Short: "Generate a single automation script without starting a conversation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		automation, err := a.agent.GenerateAutomation(cmd.Context(), strings.Join(args, " "), generatePlatform, nil)
		if err != nil {
			return err
		}
		if generateOutDir == "" {
			fmt.Fprintln(cmd.OutOrStdout(), automation.Script)
			return nil
		}
		if err := os.MkdirAll(generateOutDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(generateOutDir, automation.Filename)
		if err := os.WriteFile(path, []byte(automation.Script), 0o755); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generatePlatform, "platform", "p", "bash", "Target platform (powershell, applescript, bash)")
	generateCmd.Flags().StringVarP(&generateOutDir, "out", "o", "", "Write the script into this directory instead of stdout")
}
