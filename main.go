package main

import (
	"os"

	"spacetraveling/service"
)

// CliVersion is the released version of the command line.
const CliVersion = "1.0.0"

var exit = os.Exit

// RealMain runs the command line and exits non-zero on failure.
func RealMain() {
	service.SetVersion(CliVersion)
	if err := service.Execute(); err != nil {
		exit(1)
	}
}

func main() {
	RealMain()
}
