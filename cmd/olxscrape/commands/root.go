// Package commands implements the olxscrape CLI.
package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "olxscrape",
	Short: "Scrape OLX listing pages from the command line",
	Long: `olxscrape loads an OLX search results page, extracts its listings and
prints a price and location summary.

Examples:
  # Scrape a results page with headless Chrome
  olxscrape scrape "https://www.olx.com.br/celulares/estado-mg?q=iphone"

  # Build the search URL and fetch over plain HTTP
  olxscrape search "iphone 13" --state sp --category celulares --mode static

  # Keep listings posted since a date and export them
  olxscrape search iphone --date-from 2024-11-01 --csv out/iphone.csv --json -`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default ./.olxscrape.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".olxscrape")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("OLXSCRAPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
