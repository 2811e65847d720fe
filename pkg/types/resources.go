package types

import units "github.com/docker/go-units"

// ParseMemory converts a human-readable memory size ("512m", "1g", "0")
// into bytes, the form ResourceLimits.MemoryBytes and SwapBytes store.
// An empty string means "unset" and returns 0 with no error.
func ParseMemory(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return units.RAMInBytes(s)
}
