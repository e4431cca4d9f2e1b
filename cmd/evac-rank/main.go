package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mr1hm/go-evac-priority/internal/ranking"
)

// Exit codes. Input errors are told apart so scripts can react to bad
// registry exports.
const (
	exitError        = 1
	exitInvalidInput = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, ranking.ErrInvalidInput) {
		return exitInvalidInput
	}
	return exitError
}
