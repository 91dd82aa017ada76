package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	GroupID: "maint",
	Short:   "Rebuild the FTS index and re-run schema migrations",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(false)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		if err := c.Migrate(rootCtx); err != nil {
			fatalf("%v", err)
		}
		if !jsonOutput {
			fmt.Println("migrated")
		}
	},
}

func init() { rootCmd.AddCommand(migrateCmd) }
