// Package cmd provides the command-line interface for memsim.
package cmd

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "memsim",
	Short: "Memsim simulates a paged virtual memory in front of a " +
		"two-level cache hierarchy.",
	Long: `Memsim simulates a paged virtual memory in front of a two-level ` +
		`cache hierarchy. The run command replays a trace of virtual ` +
		`addresses through the memory system, and the shell command opens ` +
		`an interactive allocator playground.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var loadDotEnv sync.Once

// envOr returns the value of the environment variable if it is set, and the
// fallback otherwise. Variables can also come from a .env file in the
// working directory.
func envOr(name, fallback string) string {
	loadDotEnv.Do(func() { _ = godotenv.Load() })

	if v, ok := os.LookupEnv(name); ok {
		return v
	}

	return fallback
}

// envUint64 is envOr for numeric variables. Values that do not parse fall
// back silently.
func envUint64(name string, fallback uint64) uint64 {
	v := envOr(name, "")
	if v == "" {
		return fallback
	}

	parsed, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return fallback
	}

	return parsed
}
