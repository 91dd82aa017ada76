package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/output"
)

var toolsCmd = &cobra.Command{
	Use:     "tools",
	GroupID: "tagging",
	Short:   "List canonical tools that have been called, ordered by call count",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		tools, err := c.Tools(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		if err := output.Get(formatterName()).FormatTools(os.Stdout, tools); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() { rootCmd.AddCommand(toolsCmd) }
