package main

import (
	"github.com/mjpitz/absorb/internal/commands"
)

func main() {
	commands.Execute()
}
