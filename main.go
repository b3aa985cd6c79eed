package main

import (
	"os"

	"cpi-server/cmd"
	"cpi-server/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
