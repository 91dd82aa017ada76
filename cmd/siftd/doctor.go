package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kgruel/siftd-sub000/internal/doctor"
	"github.com/kgruel/siftd-sub000/internal/output"
)

var doctorStrict bool

var doctorCmd = &cobra.Command{
	Use:     "doctor [list|run|fix|<check>]",
	GroupID: "maint",
	Short:   "Diagnose and optionally fix corpus health issues",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sub := "run"
		if len(args) == 1 {
			sub = args[0]
		}

		c, err := openClient(sub != "fix")
		if err != nil {
			fatalf("%v", err)
		}
		defer c.Close()

		switch sub {
		case "list":
			for _, chk := range c.DoctorChecks() {
				fmt.Printf("%-20s %s\n", chk.Name(), chk.Description())
			}
			return
		case "fix":
			n, err := c.DoctorFix(rootCtx)
			if err != nil {
				fatalf("%v", err)
			}
			if jsonOutput {
				printJSON(map[string]int64{"fixed": n})
			} else {
				fmt.Printf("fixed %d stale session record(s)\n", n)
			}
			return
		case "run":
			sub = ""
		}

		findings, err := c.Doctor(rootCtx, sub)
		if err != nil {
			fatalf("%v", err)
		}
		if err := output.Get(formatterName()).FormatDoctor(os.Stdout, findings); err != nil {
			fatalf("%v", err)
		}
		if doctor.HasFailure(findings, doctorStrict) {
			os.Exit(1)
		}
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "promote warnings to failures for the exit code")
	rootCmd.AddCommand(doctorCmd)
}
