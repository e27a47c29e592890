// Package configpaths resolves where CONDUIT config files live on each
// platform and which candidate paths the CLI should offer to kong's
// configuration loaders.
package configpaths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigDir returns the per-user configuration directory: %AppData%
// on Windows, XDG config home or ~/.config elsewhere.
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, "CONDUIT"), nil
		}
		return "", errors.New("AppData not set")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "conduit"), nil
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "conduit"), nil
	}
	return "", errors.New("HOME not set")
}

// EnsureDir creates the directory portion of a file path.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}

// candidates collects config file paths per loader format.
type candidates struct {
	json, yaml, toml []string
}

func (c *candidates) addDir(dir string, bases ...string) {
	for _, base := range bases {
		c.json = append(c.json, filepath.Join(dir, base+".json"))
		c.yaml = append(c.yaml,
			filepath.Join(dir, base+".yaml"),
			filepath.Join(dir, base+".yml"))
		c.toml = append(c.toml, filepath.Join(dir, base+".toml"))
	}
}

// ConfigCandidatePaths builds the candidate config file list per format,
// most specific first: the explicit user path (routed to its loader by
// extension), the working directory, the user config home, then /etc on
// unix. Missing files are fine; kong skips them.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	var c candidates

	if userPath != "" {
		switch filepath.Ext(userPath) {
		case ".yaml", ".yml":
			c.yaml = append(c.yaml, userPath)
		case ".toml":
			c.toml = append(c.toml, userPath)
		default:
			c.json = append(c.json, userPath)
		}
	}

	wd, _ := os.Getwd()
	c.addDir(wd, "conduit", "config", "server", "tap")

	if dir, err := DefaultConfigDir(); err == nil {
		c.addDir(dir, "config", "server", "tap")
	}
	if runtime.GOOS != "windows" {
		c.addDir("/etc/conduit", "config", "server", "tap")
	}

	return c.json, c.yaml, c.toml
}
