// The memsim command simulates a paged virtual memory in front of a
// two-level cache hierarchy and reports on its behavior.
package main

import "github.com/memsimlab/memsim/memsim/cmd"

func main() {
	cmd.Execute()
}
