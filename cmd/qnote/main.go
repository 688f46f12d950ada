package main

import (
	"fmt"
	"os"

	"github.com/kobzarvs/qnote/internal/app"
	"github.com/kobzarvs/qnote/internal/logger"
)

func main() {
	args := os.Args[1:]
	debug := false
	if len(args) > 0 && args[0] == "--debug" {
		debug = true
		args = args[1:]
	}
	if err := logger.Init(debug); err != nil {
		fmt.Fprintln(os.Stderr, "qnote:", err)
		os.Exit(1)
	}
	defer logger.Close()

	if err := app.New(args).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "qnote:", err)
		os.Exit(1)
	}
}
