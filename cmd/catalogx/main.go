// Command catalogx crawls a university course catalog, parses its
// prerequisite prose into a logical AST, and derives a ranked, topologically
// ordered course dependency graph.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgLog = log.New(log.Writer(), "[cfg] ", log.LstdFlags)

var rootCmd = &cobra.Command{
	Use:   "catalogx",
	Short: "Course catalog crawler, requisite parser, and dependency graph analyzer",
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		cfgLog.Printf("warning: failed to load .env: %v", err)
	}

	rootCmd.AddCommand(crawlCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
