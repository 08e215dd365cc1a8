// Command cascade replays build-node completion records against a build
// graph and reports per-target results.
package main

import "github.com/papapumpkin/cascade/cmd"

func main() {
	cmd.Execute()
}
