// Package cmd defines the CLI commands for the rfarchive executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rfarchive",
		Short: "Archives the publisher's language editions for offline serving.",
		Long: `rfarchive crawls the article feeds of the publisher's ten language
editions, storing pages and images in a content-addressed local archive that
a separate read-only web server can serve when the origin is unreachable.
Crawls are incremental and resumable.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./rfarchive.yaml if present)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newSitesCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
