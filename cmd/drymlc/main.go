package main

import "github.com/dangdungcntt/go-dryml/cmd/drymlc/internal/command"

func main() {
	command.Execute()
}
