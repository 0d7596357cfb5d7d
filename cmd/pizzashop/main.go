// Command pizzashop runs the pizza shop from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/Chrich02/pizzashop/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
