package main

import (
	"github.com/munlang/munc/cmd"
)

var version = "v0.1.0"

func main() {
	cmd.Execute(version)
}
