package main

import (
	"os"

	"volume-reconcile/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
