package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/output"
)

var tagsCmd = &cobra.Command{
	Use:     "tags",
	GroupID: "tagging",
	Short:   "List every tag in use, ordered by total usage",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		tags, err := c.Tags(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		if err := output.Get(formatterName()).FormatTags(os.Stdout, tags); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() { rootCmd.AddCommand(tagsCmd) }
