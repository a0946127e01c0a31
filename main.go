package main

import (
	"github.com/futurehomeno/edge-vwarmup/cmd"
)

func main() {
	cmd.Execute()
}
