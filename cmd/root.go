/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cybercards",
	Short: "Gift-card resale marketplace API server",
	Long: `cybercards is the API server for the gift-card resale marketplace.

Users register and submit gift cards for moderation; reviewers approve or
reject them through the admin endpoints.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
