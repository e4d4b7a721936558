package platform

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// commandTimeout bounds every external tool invocation.
const commandTimeout = 5 * time.Second

// lookPath and runCommand are package-level variables so tests can replace
// them without the real tools installed.
var (
	lookPath = exec.LookPath

	runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		out, err := exec.CommandContext(ctx, name, args...).Output()
		if err != nil {
			return nil, fmt.Errorf("platform: %s: %w", name, err)
		}
		return out, nil
	}
)

// toolAvailable reports whether name is on PATH.
func toolAvailable(name string) bool {
	_, err := lookPath(name)
	return err == nil
}
