package gpiomon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// SysfsReader reads input lines through the kernel's legacy sysfs GPIO
// interface. Lines are assumed exported and set to input by the image.
type SysfsReader struct {
	Root string // defaults to /sys/class/gpio
}

func (r SysfsReader) Read(pin int) (bool, error) {
	root := r.Root
	if root == "" {
		root = "/sys/class/gpio"
	}
	path := filepath.Join(root, fmt.Sprintf("gpio%d", pin), "value")
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read gpio %d: %w", pin, err)
	}
	return len(bytes.TrimSpace(raw)) > 0 && bytes.TrimSpace(raw)[0] == '1', nil
}
