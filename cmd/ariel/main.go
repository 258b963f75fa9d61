// ariel serves a Mermaid file to the browser and re-renders it on change.
package main

import (
	"os"

	"github.com/hupe1980/ariel/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
