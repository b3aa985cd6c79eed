// Package cmd provides the CLI commands for cpi-server.
package cmd

import (
	"fmt"
	"os"

	"cpi-server/config"
	"cpi-server/logging"

	"github.com/spf13/cobra"
)

const VERSION = "0.3.0"

var (
	envFile string
	verbose bool

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cpi-server",
	Short: "Central pivot irrigation statistics from satellite imagery",
	Long: `cpi-server compares a band's statistics inside the inscribed disk of a
field's bounding box with the remainder of the box, for every image of a
collection over a date range.

Examples:
  cpi-server serve
  cpi-server compute --xmin -100 --xmax -99.99 --ymin 40 --ymax 40.01 --begin 2018-01-01 --end 2018-03-01
  cpi-server compute --id 1
  cpi-server harvest --xmin -100 --xmax -99.99 --ymin 40 --ymax 40.01`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default is ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if envFile != "" {
		if _, err := os.Stat(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading env file: %v\n", err)
			os.Exit(1)
		}
		cfg = config.Load(envFile)
	} else {
		cfg = config.Load()
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Format = cfg.LogFormat
	if verbose {
		logCfg.Level = "debug"
	}
	if err := logging.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cpi-server version " + VERSION)
	},
}
