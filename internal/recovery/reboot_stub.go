//go:build !linux

package recovery

import "fmt"

type platformRebooter struct{}

func (platformRebooter) Reboot() error {
	return fmt.Errorf("reboot is only supported on linux")
}
