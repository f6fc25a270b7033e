package main

import "github.com/iksnae/claude-memory/cmd"

func main() {
	cmd.Execute()
}
