// Command stepwise traces small Python scripts step by step.
package main

import (
	"os"

	"github.com/roach88/stepwise/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
