package supervisor

import (
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// unixKillGroup signals pid's entire process group, tolerating a
// group that has already exited.
func unixKillGroup(pid int, sig syscall.Signal) error {
	err := unix.Kill(-pid, unix.Signal(sig))
	if err == unix.ESRCH {
		return nil
	}
	return err
}

// killByPatterns pattern-matches and signals orphaned processes a
// service's tracked PID didn't cover, following up with a delayed
// SIGKILL sweep — the backstop services.py's _kill_by_pattern applies
// beyond the tracked child.
func killByPatterns(patterns []string, followUpDelay time.Duration) {
	if len(patterns) == 0 {
		return
	}
	for _, pat := range patterns {
		_ = exec.Command("pkill", "-f", pat).Run()
	}
	if followUpDelay > 0 {
		time.Sleep(followUpDelay)
	}
	for _, pat := range patterns {
		_ = exec.Command("pkill", "-9", "-f", pat).Run()
	}
}
