package config

import (
	"os"
	"path/filepath"

	"github.com/saiset-co/sai-filecache/types"
)

// ResolveDataDir returns the per-user application data directory for
// appName ($XDG_CONFIG_HOME, ~/Library/Application Support or %AppData%).
// The directory is not created here; the store does that on Init.
func ResolveDataDir(appName string) (string, error) {
	if appName == "" {
		appName = DefaultAppName
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", types.NewIOError("resolve data dir", appName, types.Errorf(types.ErrDataDirUnavailable, "%v", err))
	}

	return filepath.Join(base, appName), nil
}
