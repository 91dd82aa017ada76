package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:     "export <id>",
	GroupID: "search",
	Short:   "Export a conversation as JSON or markdown",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		out, err := c.Export(rootCtx, args[0], exportFormat)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Println(out)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "\"json\" or \"markdown\"")
	rootCmd.AddCommand(exportCmd)
}
