package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.clir>",
	Short: "Check a compiled module for structural problems",
	Long:  `Decode a .clir file and verify that every constant and body reference resolves`,
	Args:  cobra.ExactArgs(1),
	Run:   runCheck,
}

func runCheck(cmd *cobra.Command, args []string) {
	cmd.SilenceUsage = true
	prog := loadProgram(args[0])

	if err := prog.Lir.Validate(); err != nil {
		bad := color.New(color.FgRed)
		if !useColor(cmd) {
			bad.DisableColor()
		}
		bad.Fprintf(os.Stderr, "%s contains errors:\n", args[0])
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitContainsError)
	}

	if !quiet(cmd) {
		fmt.Printf("%s: %d constant(s), %d body(ies), ok\n",
			args[0], len(prog.Lir.Constants), len(prog.Lir.Bodies))
	}
}
