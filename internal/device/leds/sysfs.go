package leds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const gpioRoot = "/sys/class/gpio"

// SysfsPin is an output line exposed through the kernel's legacy sysfs
// GPIO interface.
type SysfsPin struct {
	Number int
}

// Export makes the line available and sets it to output. Already
// exported lines are fine.
func (p SysfsPin) Export() error {
	err := os.WriteFile(filepath.Join(gpioRoot, "export"), []byte(fmt.Sprintf("%d", p.Number)), 0o200)
	if err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("export gpio %d: %w", p.Number, err)
	}
	dir := filepath.Join(gpioRoot, fmt.Sprintf("gpio%d", p.Number))
	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte("out"), 0o200); err != nil {
		return fmt.Errorf("set gpio %d direction: %w", p.Number, err)
	}
	return nil
}

func (p SysfsPin) Set(on bool) error {
	value := []byte("0")
	if on {
		value = []byte("1")
	}
	path := filepath.Join(gpioRoot, fmt.Sprintf("gpio%d", p.Number), "value")
	if err := os.WriteFile(path, value, 0o200); err != nil {
		return fmt.Errorf("write gpio %d: %w", p.Number, err)
	}
	return nil
}
