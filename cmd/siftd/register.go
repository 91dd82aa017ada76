package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var registerAdapter string

var registerCmd = &cobra.Command{
	Use:     "register <harness-session-id>",
	GroupID: "live",
	Short:   "Register a live session for this workspace",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := openClient(false)
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		wd, err := os.Getwd()
		if err != nil {
			fatalf("%v", err)
		}
		if registerAdapter == "" {
			fatalf("--adapter is required")
		}
		if err := c.RegisterSession(rootCtx, args[0], registerAdapter, wd); err != nil {
			fatalf("%v", err)
		}
		if !jsonOutput {
			fmt.Println("registered")
		}
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerAdapter, "adapter", "", "adapter name this session belongs to")
	rootCmd.AddCommand(registerCmd)
}
