package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"candy/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "candy",
	Short: "Candy runtime and tooling",
	Long:  `Run, check, and fuzz compiled candy modules`,
}

// Exit codes shared by all subcommands.
const (
	exitFileNotFound  = 2
	exitNotInPackage  = 3
	exitContainsError = 4
	exitFuzzFindings  = 5
)

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fuzzCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command) bool {
	flag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false
	}
	return flag == "on" || (flag == "auto" && isTerminal(os.Stdout))
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return false
	}
	return q
}
