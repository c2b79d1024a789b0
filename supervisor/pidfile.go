package supervisor

import (
	"encoding/json"
	"os"

	"golang.org/x/sys/unix"
)

const pidFileMode os.FileMode = 0644

// savePIDs atomically persists the set of currently-tracked PIDs, so a
// crash of the supervisor process itself does not orphan its children.
func savePIDs(path string, pids map[string]int) error {
	data, err := json.Marshal(pids)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, pidFileMode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// loadPIDs reads a previously-persisted PID map, returning an empty
// map (not an error) if the file does not exist.
func loadPIDs(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, err
	}
	var pids map[string]int
	if err := json.Unmarshal(data, &pids); err != nil {
		return nil, err
	}
	return pids, nil
}

// killOrphanedGroup sends SIGTERM to the process group rooted at pid,
// tolerating a group that has already exited.
func killOrphanedGroup(pid int) error {
	err := unix.Kill(-pid, unix.SIGTERM)
	if err == unix.ESRCH {
		return nil
	}
	return err
}
