package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"candy/internal/vm"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <file.clir>",
	Short: "Execute a compiled candy module",
	Long:  `Load a compiled .clir file and run its module body to completion`,
	Args:  cobra.ExactArgs(1),
	Run:   runExecution,
}

func init() {
	runCmd.Flags().Int("instructions", 0, "stop after this many instructions (0 = unlimited)")
	runCmd.Flags().Bool("trace-calls", false, "record the call stack for panic reports")
	runCmd.Flags().Bool("trace", false, "stream every VM event to stderr")
}

func runExecution(cmd *cobra.Command, args []string) {
	cmd.SilenceUsage = true
	prog := loadProgram(args[0])

	budget, _ := cmd.Flags().GetInt("instructions")
	traceCalls, _ := cmd.Flags().GetBool("trace-calls")
	traceAll, _ := cmd.Flags().GetBool("trace")

	var tracer vm.Tracer = vm.NopTracer{}
	var stacks *vm.StackTracer
	switch {
	case traceAll:
		tracer = vm.NewStreamTracer(os.Stderr)
	case traceCalls:
		stacks = vm.NewStackTracer()
		tracer = stacks
	}

	machine := vm.NewVM(tracer)
	machine.SetUpForRunningModuleClosure(prog.closure(), prog.responsible())

	var controller vm.ExecutionController = vm.RunForever{}
	if budget > 0 {
		controller = vm.NewRunLimitedNumberOfInstructions(budget)
	}
	machine.Run(prog.useProvider(), controller)

	switch machine.Status() {
	case vm.VMDone:
		result := machine.TearDown()
		if !quiet(cmd) {
			fmt.Println(result.Return.Heap.DebugText(result.Return.Value))
		}

	case vm.VMPanicked:
		result := machine.TearDown()
		reportPanic(cmd, result.Panic, stacks)
		os.Exit(exitContainsError)

	case vm.VMWaitingForOperations:
		fmt.Fprintln(os.Stderr, "the program deadlocked: every fiber is blocked on a channel operation")
		os.Exit(exitContainsError)

	default:
		fmt.Fprintf(os.Stderr, "instruction budget of %d exhausted before the program finished\n", budget)
		os.Exit(exitContainsError)
	}
}

func reportPanic(cmd *cobra.Command, p vm.Panic, stacks *vm.StackTracer) {
	headline := color.New(color.FgRed, color.Bold)
	if !useColor(cmd) {
		headline.DisableColor()
	}
	headline.Fprintln(os.Stderr, "the program panicked: "+p.Reason)
	fmt.Fprintf(os.Stderr, "%s is responsible\n", p.Responsible)
	if stacks != nil {
		// Fiber 0 is the root; its stack covers single-fiber programs,
		// which is what panic hunting usually looks at.
		for _, span := range stacks.Stack(0) {
			fmt.Fprintf(os.Stderr, "  in call at %s\n", span.Call)
		}
	}
}
