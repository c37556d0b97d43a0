package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "simcheck",
	Short: "Near-duplicate source code detection across student submissions",
	Long: `simcheck compares a population of student submissions against each
other (and, optionally, a historical archive) and reports the most
similar pairs, with precise character ranges identifying the matching
content, for several comparison strategies ("passes").`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (TOML, YAML, or JSON)")
}
