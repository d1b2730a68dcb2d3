//go:build windows

package probe

import "github.com/shirou/gopsutil/v4/process"

// pidAlive on windows delegates to gopsutil since there is no signal-0
// equivalent worth hand-rolling.
func pidAlive(pid int) (bool, error) {
	return process.PidExists(int32(pid))
}
