package loader

import (
	"github.com/spf13/viper"
)

// defaultEngineName is the file name searched for in each candidate
// directory when no explicit path overrides the search.
const defaultEngineName = "simengine.wasm"

// Config holds engine resolution settings.
type Config struct {
	Engine EngineConfig `mapstructure:"engine"`
}

// EngineConfig selects the wasm engine module.
type EngineConfig struct {
	// Path is an explicit override; when set, resolution tries it first.
	Path string `mapstructure:"path"`
	// Name is the engine file name searched for in candidate directories.
	Name string `mapstructure:"name"`
}

// LoadConfig reads configuration from the optional file at configPath,
// layered under the SIMBRIDGE_* environment variables and the defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("engine.path", "")
	v.SetDefault("engine.name", defaultEngineName)

	_ = v.BindEnv("engine.path", "SIMBRIDGE_ENGINE_PATH")
	_ = v.BindEnv("engine.name", "SIMBRIDGE_ENGINE_NAME")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
