package main

import (
	"os"

	"github.com/clouddock-systems/clouddock/cmd/clouddock/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
