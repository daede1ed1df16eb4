//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Batch builds the CLI and answers data/questions.jsonl, writing
// results to out/answers.jsonl.
func Batch() error {
	mg.Deps(Build)

	out := filepath.Join("out", "answers.jsonl")
	cmd := exec.Command(filepath.Join(binDir, binName), "batch",
		"--input", filepath.Join("data", "questions.jsonl"),
		"--output", out)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("retail-copilot batch: %w", err)
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}
