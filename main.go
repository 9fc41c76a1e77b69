package main

import (
	"os"

	"mu/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
