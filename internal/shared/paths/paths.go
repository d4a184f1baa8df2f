// Package paths resolves the on-disk layout of the agent's per-user data
// directory. All persisted units (the settings document and one file per
// cookie jar) live under a single root created on first run.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppDirName is the directory created under the platform config root.
const AppDirName = "restgate-agent"

// Layout holds the resolved paths for one agent instance.
type Layout struct {
	Root         string
	SettingsFile string
	JarDir       string
	ProcessFile  string
}

// Resolve computes the layout. An empty override uses the platform per-user
// configuration directory.
func Resolve(override string) (Layout, error) {
	root := override
	if root == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return Layout{}, fmt.Errorf("resolve data dir: %w", err)
		}
		root = filepath.Join(base, AppDirName)
	}
	return Layout{
		Root:         root,
		SettingsFile: filepath.Join(root, "settings.json"),
		JarDir:       filepath.Join(root, "jars"),
		ProcessFile:  filepath.Join(root, "agent.toml"),
	}, nil
}

// Ensure creates the directory tree with owner-only permissions. The settings
// unit carries the bearer token, so nothing here is group or world readable.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Root, l.JarDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// JarFile returns the persisted unit for a sanitized jar key.
func (l Layout) JarFile(key string) string {
	return filepath.Join(l.JarDir, key+".json")
}
