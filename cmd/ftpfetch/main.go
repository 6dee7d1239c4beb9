package main

import (
	"os"

	"github.com/dl-alexandre/ftpfetch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
