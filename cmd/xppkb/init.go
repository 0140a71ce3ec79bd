package main

import (
	"fmt"
	"os"
	"path/filepath"

	"xppkb/internal/config"
	"xppkb/internal/modules"

	"github.com/spf13/cobra"
)

var (
	initForce        bool
	initMetadataRoot string
	initCustomModels []string
	initCacheURL     string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize xppkb configuration",
	Long: `Creates the data directory with a default config.toml. When a metadata root
is given and it has no model declaration file yet, an example MODELS.toml is
written there too.

Examples:
  xppkb init --metadata-root /mnt/PackagesLocalDirectory
  xppkb init --metadata-root ./Metadata --custom-models ContosoExtensions,ContosoReports
  xppkb init --cache-url redis://localhost:6379/0`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing config.toml")
	initCmd.Flags().StringVar(&initMetadataRoot, "metadata-root", "", "Root directory of the packaged metadata")
	initCmd.Flags().StringSliceVar(&initCustomModels, "custom-models", nil, "Comma-separated custom model names")
	initCmd.Flags().StringVar(&initCacheURL, "cache-url", "", "Cache backend (redis://..., badger://<dir>, local)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := filepath.Join(dataDirFlag, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Println("xppkb already initialized.")
		fmt.Printf("Configuration at: %s\n", configPath)
		fmt.Println("\nRun 'xppkb init --force' to reinitialize.")
		return nil
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDirFlag
	cfg.Metadata.Root = initMetadataRoot
	cfg.Metadata.CustomModels = append(cfg.Metadata.CustomModels, initCustomModels...)
	cfg.Cache.URL = initCacheURL
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(dataDirFlag); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("Configuration written to %s\n", configPath)

	if initMetadataRoot == "" {
		fmt.Println("\nSet metadata.root in the config, then run 'xppkb index'.")
		return nil
	}
	declPath := filepath.Join(initMetadataRoot, cfg.Metadata.DeclarationFile)
	if _, err := os.Stat(declPath); os.IsNotExist(err) {
		if err := modules.CreateExampleModelsFile(declPath, initCustomModels); err != nil {
			return err
		}
		fmt.Printf("Model declarations written to %s\n", declPath)
	}
	fmt.Println("\nRun 'xppkb index' to build the symbol store.")
	return nil
}
