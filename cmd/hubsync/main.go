package main

import (
	"os"

	"github.com/roach88/hubsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
