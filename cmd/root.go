// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/jdfalk/book-search/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var dataDir string
var databasePath string
var catalogPath string
var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "book-search",
	Short: "Look up book metadata across online catalogues",
	Long: `Book Search queries several online book catalogues by ISBN, author,
title or site specific id, and merges what they return into one record.

Searches can be run from the command line or through the HTTP server,
which keeps one search session per client and streams progress events.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(config.AppConfig.LogLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.book-search.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for settings, catalog and covers (default ~/.book-search)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "", "path to the settings database (default <data-dir>/settings.pebble)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "path to the local catalog (default <data-dir>/catalog.db)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("catalog_path", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(diagnosticsCmd)
	rootCmd.AddCommand(backupCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".book-search")
	}

	if err := viper.ReadInConfig(); err == nil {
		log.Printf("[DEBUG] Using config file: %s", viper.ConfigFileUsed())
	}

	config.InitConfig()

	// Ensure the data directory exists
	if config.AppConfig.DataDir != "" {
		if err := os.MkdirAll(config.AppConfig.DataDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating data directory: %v\n", err)
		}
	}
}
