package config

import (
	"path/filepath"

	"github.com/kkyr/fig"
)

const EnvPrefix = "FRAMECAST"

// LoadConfig loads a configuration file into the given struct.
// The path param specifies a custom path to the configuration file;
// when empty, only the defaults and environment variables with the
// FRAMECAST_ prefix are applied.
func LoadConfig(config any, path string) error {
	if path == "" {
		return fig.Load(config, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
	}
	return fig.Load(config,
		fig.File(filepath.Base(path)),
		fig.Dirs(filepath.Dir(path)),
		fig.UseEnv(EnvPrefix),
	)
}
