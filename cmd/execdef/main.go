// Command execdef builds, fingerprints and executes execution definitions.
package main

import (
	"os"

	"github.com/roach88/execdef/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
