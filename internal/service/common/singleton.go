//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ps "github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another instance of the same binary is
// active. Two samplers would race on the shared artifact and two writers
// would interleave register writes, so both services refuse to double-start.
var ErrAlreadyRunning = errors.New("another instance is already running")

// EnsureSingleInstance scans the process table for another process with this
// binary's executable name and fails if one exists.
func EnsureSingleInstance() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	name := filepath.Base(executable)

	processes, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	for _, process := range processes {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() == name {
			return fmt.Errorf("%w: %s (pid %d)", ErrAlreadyRunning, name, process.Pid())
		}
	}

	return nil
}
