// Package main is the entry point for the ffscan CLI tool.
package main

import (
	"github.com/zprp/ffscan/internal/cmd"
)

func main() {
	cmd.Execute()
}
