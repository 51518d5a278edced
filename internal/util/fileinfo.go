package util

import (
	"fmt"
	"os"
)

// GetFileMetadata extracts the size and modification time used for
// project fingerprinting
func GetFileMetadata(path string) (size int64, mtime int64, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat file: %w", err)
	}

	return info.Size(), info.ModTime().Unix(), nil
}
