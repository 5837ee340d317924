package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"VibeFM/server"
)

var rootCmd = &cobra.Command{
	Use:   "vibefm",
	Short: "VibeFM resolves song queries and vibe descriptions into playable audio.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting VibeFM server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
