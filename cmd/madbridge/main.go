package main

import (
	"os"

	"github.com/k4hvh/madbridge/cmd/madbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
