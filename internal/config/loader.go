package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/gpuwatch/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "GPUWATCH"
	// GlobalConfigDir is the config directory under the home directory.
	GlobalConfigDir = ".config/gpuwatch"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yaml"
)

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"once":            "once",
	"monitor":         "mode",
	"ascii":           "ascii",
	"force-color":     "force_color",
	"light":           "theme",
	"gpu-util-thresh": "gpu_util_thresh",
	"mem-util-thresh": "mem_util_thresh",
	"only":            "devices.only",
	"only-visible":    "devices.only_visible",
	"compute":         "processes.compute",
	"graphics":        "processes.graphics",
	"user":            "processes.users",
	"pid":             "processes.pids",
	"hosts":           "provider.hosts",
	"fixture":         "provider.fixture",
	"backend":         "backend",
	"interval":        "interval",
	"log-file":        "log_file",
}

// envAliases are environment variables whose names don't follow the key.
var envAliases = map[string]string{
	"mode":           "GPUWATCH_MONITOR_MODE",
	"monitor_always": "GPUWATCH_MONITOR_ALWAYS",
}

// Find returns the config file to read: the explicit path if given,
// otherwise the global config file if it exists, otherwise "".
func Find(explicit string) (string, error) {
	if explicit != "" {
		path := ExpandTilde(explicit)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return path, nil
	}

	for _, dir := range configDirs() {
		path := filepath.Join(dir, GlobalConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

func configDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "gpuwatch"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, GlobalConfigDir))
	}
	return dirs
}

// Load builds the configuration from defaults, the config file at path
// (if any), GPUWATCH_* environment variables and changed flags, each
// overriding the one before. The result is validated.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, errors.WrapWithCode(err, errors.ErrConfig, "Failed to bind "+env, "")
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check "+path+" exists and is valid YAML")
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return Config{}, err
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax and GPUWATCH_* variables")
	}
	cfg.LogFile = Expand(cfg.LogFile)
	cfg.Provider.Fixture = ExpandTilde(cfg.Provider.Fixture)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := FlagKeys[f.Name]
		if !ok || !f.Changed || bindErr != nil {
			return
		}
		switch f.Name {
		case "light":
			// --light is a switch over the theme key.
			if f.Value.String() == "true" {
				v.Set(key, "light")
			}
			return
		case "monitor":
			// Any value of --monitor also means "monitor was asked for".
			v.Set("monitor", true)
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = errors.WrapWithCode(err, errors.ErrConfig, "Failed to bind --"+f.Name, "")
		}
	})
	return bindErr
}

// setDefaults registers every key so environment variables apply to it.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("once", d.Once)
	v.SetDefault("monitor", d.Monitor)
	v.SetDefault("monitor_always", d.MonitorAlways)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("ascii", d.ASCII)
	v.SetDefault("force_color", d.ForceColor)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("gpu_util_thresh", d.GPUUtilThresh)
	v.SetDefault("mem_util_thresh", d.MemUtilThresh)
	v.SetDefault("devices.only", []int{})
	v.SetDefault("devices.only_visible", false)
	v.SetDefault("processes.compute", false)
	v.SetDefault("processes.graphics", false)
	v.SetDefault("processes.users", []string{})
	v.SetDefault("processes.pids", []int{})
	v.SetDefault("provider.hosts", []string{})
	v.SetDefault("provider.fixture", "")
	v.SetDefault("provider.ssh_timeout", d.Provider.SSHTimeout)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("interval", d.Interval)
	v.SetDefault("cadence", d.Cadence)
	v.SetDefault("dedup_window", d.DedupWindow)
	v.SetDefault("key_timeout", d.KeyTimeout)
	v.SetDefault("log_file", "")
}

// DefaultLogFile is where interactive runs send log output:
// $XDG_STATE_HOME/gpuwatch/gpuwatch.log, ~/.local/state/gpuwatch/gpuwatch.log
// or the temp directory.
func DefaultLogFile() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "state")
		}
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gpuwatch", "gpuwatch.log")
}
