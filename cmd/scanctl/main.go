package main

import "github.com/kirillkom/forensic-scan/internal/cli/commands"

func main() {
	commands.Execute()
}
