package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// CommandContext allows overriding the command creation for testing
	CommandContext = exec.CommandContext
	// LookPath allows overriding the lookup behavior for testing
	LookPath = exec.LookPath
)

// ResolveSecretReference resolves value when it refers to a secret held
// elsewhere. op://vault/item/field is read with the 1Password CLI and
// file:///path is read from disk. Other values are returned unchanged.
// The boolean reports whether value was a reference.
func ResolveSecretReference(ctx context.Context, value string) (string, bool, error) {
	switch {
	case strings.HasPrefix(value, "op://"):
		secret, err := readOnePassword(ctx, value)
		return secret, true, err
	case strings.HasPrefix(value, "file://"):
		path := strings.TrimPrefix(value, "file://")
		if path == "" {
			return "", true, fmt.Errorf("file reference has no path")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", true, fmt.Errorf("failed to read secret file: %w", err)
		}
		return strings.TrimSpace(string(data)), true, nil
	default:
		return value, false, nil
	}
}

func readOnePassword(ctx context.Context, ref string) (string, error) {
	if _, err := LookPath("op"); err != nil {
		return "", fmt.Errorf("1Password CLI (op) not found in PATH: %w", err)
	}

	output, err := CommandContext(ctx, "op", "read", ref).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("failed to read secret from 1Password: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("failed to read secret from 1Password: %w", err)
	}

	// Trim any whitespace/newlines from the output
	return strings.TrimSpace(string(output)), nil
}
