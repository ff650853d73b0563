package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/memsimlab/memsim/datarecording"
	"github.com/memsimlab/memsim/mem/memsys"
	"github.com/memsimlab/memsim/mem/trace"
	"github.com/memsimlab/memsim/mem/vm"
	"github.com/memsimlab/memsim/monitoring"
)

var runCmd = &cobra.Command{
	Use:   "run [trace-file]",
	Short: "Replay a trace of virtual addresses through the memory system.",
	Long: `Run replays a trace of virtual addresses through the memory ` +
		`system and prints a summary of page faults and cache hits. The ` +
		`trace is one address per line, decimal or 0x-prefixed hex, read ` +
		`from the given file or from standard input.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runTrace,
}

func init() {
	rootCmd.AddCommand(runCmd)

	addSystemFlags(runCmd)

	runCmd.Flags().Bool("trace", false,
		"print one line per access")
	runCmd.Flags().String("db", "",
		"record accesses to a SQLite database with this name")
	runCmd.Flags().Bool("monitor", false,
		"serve the monitoring APIs while the trace replays")
	runCmd.Flags().Int("monitor-port", 0,
		"port for the monitoring server, 0 picks a random port")
}

func runTrace(cmd *cobra.Command, args []string) {
	system := buildSystem(cmd)

	if traceFlag, _ := cmd.Flags().GetBool("trace"); traceFlag {
		system.AcceptTracer(trace.NewTracer(log.New(os.Stdout, "", 0)))
	}

	if dbName, _ := cmd.Flags().GetString("db"); dbName != "" {
		recorder := datarecording.New(dbName)
		defer recorder.Flush()

		system.AcceptTracer(trace.NewDBTracer(recorder))
	}

	if monitorFlag, _ := cmd.Flags().GetBool("monitor"); monitorFlag {
		monitor := monitoring.NewMonitor()

		if port, _ := cmd.Flags().GetInt("monitor-port"); port != 0 {
			monitor.WithPortNumber(port)
		}

		monitor.RegisterMemSystem(system)
		monitor.StartServer()
	}

	input := openTraceInput(args)
	defer input.Close()

	total := replay(system, input)

	printSummary(os.Stdout, system, total)
}

// addSystemFlags registers the memory-system geometry flags shared by the
// run and shell commands.
func addSystemFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("page-size",
		envUint64("MEMSIM_PAGE_SIZE", 4096),
		"page size in bytes, must be a power of two")
	cmd.Flags().Uint64("num-pages",
		envUint64("MEMSIM_NUM_PAGES", 64),
		"number of virtual pages")
	cmd.Flags().Uint64("num-frames",
		envUint64("MEMSIM_NUM_FRAMES", 16),
		"number of physical frames")
	cmd.Flags().String("policy",
		envOr("MEMSIM_POLICY", "fifo"),
		"page replacement policy, fifo or lru")

	cmd.Flags().Uint64("l1-size", 32*1024, "L1 capacity in bytes")
	cmd.Flags().Uint64("l1-line", 64, "L1 line size in bytes")
	cmd.Flags().Uint64("l1-assoc", 1, "L1 associativity")
	cmd.Flags().Uint64("l2-size", 256*1024, "L2 capacity in bytes")
	cmd.Flags().Uint64("l2-line", 64, "L2 line size in bytes")
	cmd.Flags().Uint64("l2-assoc", 1, "L2 associativity")
}

func buildSystem(cmd *cobra.Command) *memsys.MemSystem {
	pageSize, _ := cmd.Flags().GetUint64("page-size")
	numPages, _ := cmd.Flags().GetUint64("num-pages")
	numFrames, _ := cmd.Flags().GetUint64("num-frames")
	policyName, _ := cmd.Flags().GetString("policy")
	l1Size, _ := cmd.Flags().GetUint64("l1-size")
	l1Line, _ := cmd.Flags().GetUint64("l1-line")
	l1Assoc, _ := cmd.Flags().GetUint64("l1-assoc")
	l2Size, _ := cmd.Flags().GetUint64("l2-size")
	l2Line, _ := cmd.Flags().GetUint64("l2-line")
	l2Assoc, _ := cmd.Flags().GetUint64("l2-assoc")

	policy, err := parsePolicy(policyName)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	system, err := memsys.MakeBuilder().
		WithPageSize(pageSize).
		WithNumVirtualPages(numPages).
		WithNumPhysicalFrames(numFrames).
		WithReplacementPolicy(policy).
		WithL1(l1Size, l1Line, l1Assoc).
		WithL2(l2Size, l2Line, l2Assoc).
		Build()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	return system
}

func parsePolicy(name string) (vm.ReplacementPolicy, error) {
	switch strings.ToLower(name) {
	case "fifo":
		return vm.FIFO, nil
	case "lru":
		return vm.LRU, nil
	}

	return 0, fmt.Errorf("unknown replacement policy %q, want fifo or lru", name)
}

func openTraceInput(args []string) io.ReadCloser {
	if len(args) == 0 {
		return os.Stdin
	}

	file, err := os.Open(args[0])
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	return file
}

// replay feeds every address in the input to the system and returns the
// number of accesses performed. Blank lines and lines starting with # are
// skipped; out-of-range addresses are reported and skipped.
func replay(system *memsys.MemSystem, input io.Reader) uint64 {
	var total uint64

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		addr, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			log.Fatalf("Error: bad address %q: %v", text, err)
		}

		if _, err := system.Access(addr); err != nil {
			fmt.Fprintf(os.Stderr, "Skipping 0x%x: %v\n", addr, err)
			continue
		}

		total++
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	return total
}

func printSummary(w io.Writer, system *memsys.MemSystem, total uint64) {
	l1 := system.Hierarchy().L1()
	l2 := system.Hierarchy().L2()

	fmt.Fprintf(w, "accesses:     %d\n", total)
	fmt.Fprintf(w, "page faults:  %d\n", system.Translator().PageFaults())
	fmt.Fprintf(w, "l1 hits:      %d\n", l1.Hits())
	fmt.Fprintf(w, "l1 misses:    %d\n", l1.Misses())
	fmt.Fprintf(w, "l1 hit ratio: %.4f\n", l1.HitRatio())
	fmt.Fprintf(w, "l2 hits:      %d\n", l2.Hits())
	fmt.Fprintf(w, "l2 misses:    %d\n", l2.Misses())
	fmt.Fprintf(w, "l2 hit ratio: %.4f\n", l2.HitRatio())
}
