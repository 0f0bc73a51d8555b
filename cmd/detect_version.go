package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsxbet/cypher-guard/pkg/dialect"
)

var detectVersionCmd = &cobra.Command{
	Use:   "detect-version <server-version>",
	Short: "Print the Cypher dialect for a database server version",
	Example: `  cypher-guard detect-version 4.4.18     # V4
  cypher-guard detect-version 2025.11.2  # V5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := dialect.Detect(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectVersionCmd)
}
