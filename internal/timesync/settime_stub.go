//go:build !linux

package timesync

import (
	"fmt"
	"time"
)

func setSystemClock(time.Time) error {
	return fmt.Errorf("clock stepping is only supported on linux")
}
