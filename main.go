package main

import "github.com/agentic-research/genui/cmd"

func main() {
	cmd.Execute()
}
