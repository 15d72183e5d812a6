package main

import (
	"os"

	"github.com/monorkin/iot-inventory/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
