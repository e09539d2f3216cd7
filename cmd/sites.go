package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rfarchive/rfarchive/internal/site"
)

func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "Lists the supported language editions",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range site.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
