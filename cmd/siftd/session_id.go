package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sessionIDCmd = &cobra.Command{
	Use:     "session-id",
	GroupID: "live",
	Short:   "Print this workspace's live-session id, if any",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(true)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		wd, err := os.Getwd()
		if err != nil {
			fatalf("%v", err)
		}
		id, err := c.CurrentSessionID(wd)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(map[string]string{"session_id": id})
			return
		}
		fmt.Println(id)
	},
}

func init() { rootCmd.AddCommand(sessionIDCmd) }
