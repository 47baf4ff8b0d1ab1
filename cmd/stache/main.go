// stache renders mustache-style templates with filters from the command line.
package main

import (
	"os"

	"github.com/benjaminschreck/go-stache/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
