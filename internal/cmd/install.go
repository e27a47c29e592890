package cmd

import (
	"fmt"
	"os"
	"path/filepath"
)

type Install struct{}

type Uninstall struct{}

func currentExecutable() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exePath); err == nil {
		exePath = resolved
	}
	return exePath, nil
}
