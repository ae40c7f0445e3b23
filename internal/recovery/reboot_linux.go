//go:build linux

package recovery

import "golang.org/x/sys/unix"

type platformRebooter struct{}

func (platformRebooter) Reboot() error {
	unix.Sync()
	return unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART)
}
