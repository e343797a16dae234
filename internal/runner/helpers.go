package runner

import "os"

func directoryExists(path string) bool {
	info, statError := os.Stat(path)
	return statError == nil && info.IsDir()
}
