package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"candy/internal/fuzz"
)

var fuzzCmd = &cobra.Command{
	Use:   "fuzz [flags] <file.clir>",
	Short: "Fuzz the module's fuzzable closures",
	Long:  `Run the module, collect its fuzzable closures, and call each with generated inputs`,
	Args:  cobra.ExactArgs(1),
	Run:   runFuzz,
}

func init() {
	defaults := fuzz.DefaultOptions()
	fuzzCmd.Flags().Int64("seed", defaults.Seed, "seed for input generation")
	fuzzCmd.Flags().Int("cases", defaults.CasesPerClosure, "inputs generated per closure")
	fuzzCmd.Flags().Int("instructions", defaults.MaxInstructions, "instruction budget per case")
	fuzzCmd.Flags().Int("workers", defaults.Workers, "cases run concurrently")
}

func runFuzz(cmd *cobra.Command, args []string) {
	cmd.SilenceUsage = true
	prog := loadProgram(args[0])

	opts := fuzz.DefaultOptions()
	opts.Seed, _ = cmd.Flags().GetInt64("seed")
	opts.CasesPerClosure, _ = cmd.Flags().GetInt("cases")
	opts.MaxInstructions, _ = cmd.Flags().GetInt("instructions")
	opts.Workers, _ = cmd.Flags().GetInt("workers")

	findings, err := fuzz.Run(cmd.Context(), prog.Lir, prog.responsible(), prog.useProvider(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fuzzing failed: %v\n", err)
		os.Exit(exitContainsError)
	}

	if len(findings) == 0 {
		if !quiet(cmd) {
			fmt.Println("no failing inputs found")
		}
		return
	}

	bad := color.New(color.FgRed, color.Bold)
	if !useColor(cmd) {
		bad.DisableColor()
	}
	for _, finding := range findings {
		bad.Fprintf(os.Stderr, "%s panicked\n", finding.Closure)
		fmt.Fprintf(os.Stderr, "  inputs: %v\n", finding.Arguments)
		fmt.Fprintf(os.Stderr, "  reason: %s\n", finding.Panic.Reason)
		fmt.Fprintf(os.Stderr, "  responsible: %s\n", finding.Panic.Responsible)
	}
	fmt.Fprintf(os.Stderr, "%d failing case(s)\n", len(findings))
	os.Exit(exitFuzzFindings)
}
