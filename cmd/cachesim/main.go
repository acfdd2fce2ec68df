// Command cachesim runs a memory trace through a simulated cache hierarchy
// and reports the statistics of every level.
package main

import "github.com/sarchlab/cachesim/cmd/cachesim/cmd"

func main() {
	cmd.Execute()
}
