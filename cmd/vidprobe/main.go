// Package main is the entry point for the vidprobe CLI.
package main

import "github.com/thesyncim/vidprobe/internal/cmd"

func main() {
	cmd.Execute()
}
