package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:     "copy {adapter|query} <name>",
	GroupID: "setup",
	Short:   "Scaffold a new drop-in adapter or saved query from a built-in template",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		dest, err := c.Copy(args[0], args[1])
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Println(dest)
	},
}

func init() { rootCmd.AddCommand(copyCmd) }
