package main

import (
	"xppkb/internal/config"
	"xppkb/internal/version"

	"github.com/spf13/cobra"
)

var (
	dataDirFlag string
	formatFlag  string
	verbosity   int
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "xppkb",
	Short: "xppkb - X++ metadata knowledge base",
	Long: `xppkb indexes Dynamics 365 Finance & Operations metadata (classes, tables,
enums and their members) into a local SQLite store and answers symbol,
completion and pattern queries over it, from the command line or as an
MCP server on stdio.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("xppkb version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", config.DefaultDataDir,
		"Directory holding config.toml, the store and cache files")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatHuman),
		"Output format (human, json, yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all log output")
}
