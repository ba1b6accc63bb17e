// Package cli wires the command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"couleuvre/src/config"
	"couleuvre/src/internal/common"
	"couleuvre/src/internal/version"
	"couleuvre/src/server"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "couleuvre",
	Short: "Language server for Vyper smart contracts",
	Long:  "Couleuvre provides code navigation, completion and diagnostics for Vyper projects over the Language Server Protocol.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		common.SetGlobalLevel(parseLogLevel(logLevel))
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		srv := server.NewServer(cfg)
		return srv.Run(os.Stdin, os.Stdout)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetFullVersionInfo())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
			return err
		}
		common.CLILogger.Info("wrote default config to %s", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func parseLogLevel(s string) common.LogLevel {
	switch s {
	case "debug":
		return common.LogDebug
	case "warn":
		return common.LogWarn
	case "error":
		return common.LogError
	default:
		return common.LogInfo
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
