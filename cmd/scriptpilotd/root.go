package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ScriptPilot/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "scriptpilotd",
	Short: "ScriptPilot is a conversational assistant that writes automation scripts",
	Long: `ScriptPilot answers questions in the voice of a configurable persona and turns
automation requests into PowerShell, AppleScript or Bash scripts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute 执行根命令并返回进程退出码。
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the ScriptPilot YAML configuration")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(channelsCmd)
}

func defaultConfigPath() string {
	if path := os.Getenv(config.EnvConfigPath); path != "" {
		return path
	}
	return filepath.Join("configs", "scriptpilot.yaml")
}

// loadConfig 读取配置文件，文件不存在时退回默认配置。
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return config.Default("."), nil
		}
		return nil, err
	}
	return config.Load(configPath)
}
