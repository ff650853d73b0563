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

	"github.com/memsimlab/memsim/mem/alloc"
	"github.com/memsimlab/memsim/mem/buddy"
	"github.com/memsimlab/memsim/mem/memsys"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open an interactive memory playground.",
	Long: `Shell opens an interactive session against a physical memory ` +
		`allocator and a memory system. Type help at the prompt for the ` +
		`list of commands.`,
	Args: cobra.NoArgs,
	Run:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)

	addSystemFlags(shellCmd)

	shellCmd.Flags().String("allocator",
		envOr("MEMSIM_ALLOCATOR", "first"),
		"allocation strategy, one of first, best, worst, buddy")
	shellCmd.Flags().Uint64("mem-size",
		envUint64("MEMSIM_MEM_SIZE", 1024*1024),
		"managed memory size in bytes")
}

func runShell(cmd *cobra.Command, _ []string) {
	kind, _ := cmd.Flags().GetString("allocator")
	memSize, _ := cmd.Flags().GetUint64("mem-size")

	allocator, err := newAllocator(kind, memSize)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	system := buildSystem(cmd)

	fmt.Printf("%s managing %d bytes\n", allocator.Name(), allocator.TotalMemory())

	shellLoop(allocator, system, os.Stdin, os.Stdout)
}

func newAllocator(kind string, memSize uint64) (alloc.Allocator, error) {
	switch strings.ToLower(kind) {
	case "first":
		return alloc.NewPhysicalMemory(memSize, alloc.FirstFit)
	case "best":
		return alloc.NewPhysicalMemory(memSize, alloc.BestFit)
	case "worst":
		return alloc.NewPhysicalMemory(memSize, alloc.WorstFit)
	case "buddy":
		return buddy.New(memSize)
	}

	return nil, fmt.Errorf(
		"unknown allocator %q, want first, best, worst, or buddy", kind)
}

// shellLoop reads commands until exit or end of input. Bad commands report
// an error and keep the session alive.
func shellLoop(
	allocator alloc.Allocator,
	system *memsys.MemSystem,
	in io.Reader,
	out io.Writer,
) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "malloc":
			shellMalloc(allocator, fields, out)
		case "free":
			shellFree(allocator, fields, out)
		case "dump":
			allocator.Dump(out)
		case "stats":
			shellStats(allocator, system, out)
		case "translate":
			shellTranslate(system, fields, out)
		case "access":
			shellAccess(system, fields, out)
		case "help":
			shellHelp(out)
		case "exit", "quit":
			return
		default:
			fmt.Fprintf(out, "unknown command %q, type help\n", fields[0])
		}
	}
}

func shellMalloc(allocator alloc.Allocator, fields []string, out io.Writer) {
	if len(fields) != 2 {
		fmt.Fprintln(out, "usage: malloc <size>")
		return
	}

	size, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil || size == 0 {
		fmt.Fprintf(out, "bad size %q\n", fields[1])
		return
	}

	id, err := allocator.Allocate(size)
	if err != nil {
		fmt.Fprintf(out, "allocation failed: %v\n", err)
		return
	}

	fmt.Fprintf(out, "allocated block %d\n", id)
}

func shellFree(allocator alloc.Allocator, fields []string, out io.Writer) {
	if len(fields) != 2 {
		fmt.Fprintln(out, "usage: free <id>")
		return
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Fprintf(out, "bad id %q\n", fields[1])
		return
	}

	allocator.Free(id)
}

func shellTranslate(system *memsys.MemSystem, fields []string, out io.Writer) {
	if len(fields) != 2 {
		fmt.Fprintln(out, "usage: translate <vaddr>")
		return
	}

	addr, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		fmt.Fprintf(out, "bad address %q\n", fields[1])
		return
	}

	translator := system.Translator()

	faultsBefore := translator.PageFaults()
	paddr, err := translator.Translate(addr)
	if err != nil {
		fmt.Fprintf(out, "translate failed: %v\n", err)
		return
	}

	fmt.Fprintf(out, "0x%x -> 0x%x fault=%t\n",
		addr, paddr, translator.PageFaults() > faultsBefore)
}

func shellAccess(system *memsys.MemSystem, fields []string, out io.Writer) {
	if len(fields) != 2 {
		fmt.Fprintln(out, "usage: access <vaddr>")
		return
	}

	addr, err := strconv.ParseUint(fields[1], 0, 64)
	if err != nil {
		fmt.Fprintf(out, "bad address %q\n", fields[1])
		return
	}

	result, err := system.Access(addr)
	if err != nil {
		fmt.Fprintf(out, "access failed: %v\n", err)
		return
	}

	fmt.Fprintf(out, "0x%x -> 0x%x fault=%t hit=%t\n",
		result.VAddr, result.PAddr, result.PageFault, result.CacheHit)
}

func shellStats(allocator alloc.Allocator, system *memsys.MemSystem, out io.Writer) {
	fmt.Fprintf(out, "allocator:     %s\n", allocator.Name())
	fmt.Fprintf(out, "total:         %d\n", allocator.TotalMemory())
	fmt.Fprintf(out, "used:          %d\n", allocator.UsedMemory())
	fmt.Fprintf(out, "free:          %d\n", allocator.FreeMemory())
	fmt.Fprintf(out, "largest free:  %d\n", allocator.LargestFreeBlock())

	switch a := allocator.(type) {
	case *alloc.PhysicalMemory:
		fmt.Fprintf(out, "external frag: %.4f\n", a.ExternalFragmentation())
	case *buddy.Allocator:
		fmt.Fprintf(out, "internal frag: %.4f\n", a.InternalFragmentation())
	}

	l1 := system.Hierarchy().L1()
	l2 := system.Hierarchy().L2()

	fmt.Fprintf(out, "page faults:   %d\n", system.Translator().PageFaults())
	fmt.Fprintf(out, "l1 hit ratio:  %.4f\n", l1.HitRatio())
	fmt.Fprintf(out, "l2 hit ratio:  %.4f\n", l2.HitRatio())
}

func shellHelp(out io.Writer) {
	fmt.Fprint(out, `commands:
  malloc <size>     allocate a block of the given size in bytes
  free <id>         release the block with the given id
  dump              print the block layout
  translate <addr>  translate a virtual address
  access <addr>     translate and probe the caches
  stats             print allocator and memory system statistics
  help              print this message
  exit              leave the shell
`)
}
