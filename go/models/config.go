package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
)

const configFile = "config.json"

type Config struct {
	ForceBase       uint64 `json:"base"`
	ForceInterpBase uint64 `json:"interp_base"`
	PageSize        uint64 `json:"page_size"`
	LoadPrefix      string `json:"prefix"`
	Color           bool   `json:"color"`
	Verbose         bool   `json:"verbose"`
}

func DefaultConfig() *Config {
	return &Config{PageSize: HostPageSize()}
}

// LoadConfig returns the defaults overlaid with the first config.json found
// in the user or system config folders.
func LoadConfig() (*Config, error) {
	c := DefaultConfig()
	folder := configdir.New("elfinfo", "cli").QueryFolderContainsFile(configFile)
	if folder == nil {
		return c, nil
	}
	data, err := folder.ReadFile(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filepath.Join(folder.Path, configFile))
	}
	if err := c.Merge(data); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", filepath.Join(folder.Path, configFile))
	}
	return c, nil
}

// Merge overlays JSON fields onto c. Absent fields keep their current value.
func (c *Config) Merge(data []byte) error {
	if err := json.Unmarshal(data, c); err != nil {
		return errors.WithStack(err)
	}
	if c.PageSize == 0 || c.PageSize&(c.PageSize-1) != 0 {
		return errors.Errorf("page size %d is not a power of two", c.PageSize)
	}
	return nil
}

func (c *Config) resolveSymlink(path, target string, force bool) string {
	link, err := os.Lstat(target)
	if err == nil && link.Mode()&os.ModeSymlink != 0 {
		if linked, err := os.Readlink(target); err == nil {
			if !strings.HasPrefix(linked, "/") {
				return filepath.Join(filepath.Dir(target), linked)
			}
			return c.PrefixPath(linked, force)
		}
	}
	if force || err == nil {
		return target
	}
	return path
}

// PrefixPath maps an absolute path (such as PT_INTERP) into LoadPrefix.
// Without force, the original path is kept when the prefixed one is missing.
func (c *Config) PrefixPath(path string, force bool) string {
	if c.LoadPrefix == "" {
		return path
	}
	target := path
	if filepath.IsAbs(path) {
		target = filepath.Join(c.LoadPrefix, path)
	}
	return c.resolveSymlink(path, target, force)
}
