// Package main is the entry point for the olxscrape CLI.
package main

import (
	"os"
	_ "time/tzdata"

	"olx-scraper/cmd/olxscrape/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
