// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-harvest CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the paper-harvest CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-harvest",
	Short: "Download recent arXiv papers into topic folders",
	Long: `paper-harvest reads a list of search queries, asks arXiv for the newest
submissions matching each one, keeps those published within the recency
window, and downloads their PDFs into a timestamped session directory grouped
by topic folder. Each session gets a plaintext log.txt and a session.yaml
manifest; a SQLite history keeps later runs from downloading a paper twice.

Settings come from flags, PAPER_HARVEST_* environment variables (a .env file
in the working directory is loaded first), and paper-harvest.yaml.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-harvest.yaml or ~/.config/paper-harvest/paper-harvest.yaml)")
}

func initConfig() {
	// A missing .env is normal; anything else is worth mentioning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-harvest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-harvest"))
		}
	}

	viper.SetEnvPrefix("PAPER_HARVEST")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "warning: config %s: %v\n", cfgFile, err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
