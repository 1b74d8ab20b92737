package main

import (
	"os"

	"github.com/alternatefutures/package-cloud-sdk/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
