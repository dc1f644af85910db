package commands

import (
	"os"

	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func terminalSize(f *os.File) (width, height int, err error) {
	return term.GetSize(int(f.Fd()))
}
