// Package config loads the on-disk REPL configuration for the sdb
// shell: command aliases and commands to run automatically on launch.
package config

import (
	"bytes"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"

	"github.com/fanyingfx/sdb/internal/sdblog"
)

const (
	configDir  = ".sdb"
	configFile = "config.yml"
)

// Config defines the options a ~/.sdb/config.yml file can set.
type Config struct {
	// Aliases adds extra names for a breakpoint/register/etc command,
	// on top of its built-in prefix-dispatch name.
	Aliases map[string][]string `yaml:"aliases"`
	// OnLaunch lists shell commands to run, in order, right after the
	// inferior is launched or attached, before the first prompt.
	OnLaunch []string `yaml:"on_launch"`
}

// LoadConfig reads ~/.sdb/config.yml, creating it with commented-out
// defaults on first run. Any failure along the way is logged and
// treated as "use built-in defaults", never fatal to the shell.
func LoadConfig() *Config {
	if err := createConfigPath(); err != nil {
		logFailure("create config directory", err)
		return nil
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		logFailure("resolve config file path", err)
		return nil
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		createDefaultConfig(fullConfigFile)
		return nil
	}
	defer f.Close()

	data, err := os.ReadFile(f.Name())
	if err != nil {
		logFailure("read config data", err)
		return nil
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		logFailure("decode config file", err)
		return nil
	}
	return &c
}

func createDefaultConfig(path string) {
	f, err := os.Create(path)
	if err != nil {
		logFailure("create config file", err)
		return
	}
	defer f.Close()
	if err := writeDefaultConfig(f); err != nil {
		logFailure("write default configuration", err)
	}
}

func writeDefaultConfig(f *os.File) error {
	var buf bytes.Buffer
	buf.WriteString(
		`# Configuration file for sdb.
#
# Available options are provided below, commented out. Delete the
# leading hash mark to enable an item.

# Extra names for built-in commands, on top of their unique-prefix match.
aliases:
  # continue: ["c"]

# Commands run once, in order, right after the inferior is launched or
# attached, before the first prompt is shown.
on_launch:
  # - "breakpoint list"
`)
	_, err := buf.WriteTo(f)
	return err
}

func createConfigPath() error {
	dir, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// GetConfigFilePath joins file onto the sdb config directory
// (~/.sdb/file), or just the directory itself if file is "".
func GetConfigFilePath(file string) (string, error) {
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return path.Join(usr.HomeDir, configDir, file), nil
}

func logFailure(action string, err error) {
	if sdblog.REPL() {
		sdblog.REPLLogger().Debugf("config: %s failed: %v", action, err)
	}
}
