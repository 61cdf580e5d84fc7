package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".cafe"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for cafe settings.
const envPrefix = "CAFE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"time-slides":       "time_slides",
	"slide":             "slides",
	"extent-limit":      "extent_limit",
	"base":              "output.base",
	"single-instrument": "output.single_instrument",
	"compress":          "output.compress",
	"log-level":         "logging.level",
	"log-format":        "logging.format",
	"metrics-textfile":  "metrics.textfile",
}

// Load loads configuration from defaults, the config file, environment
// variables and any flags in flags that were set.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func Load(configPath string, flags *pflag.FlagSet, input []string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if flags != nil {
		if err := bindFlags(viperCfg, flags); err != nil {
			return nil, err
		}
	}

	if len(input) > 0 {
		viperCfg.Set("input", input)
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func bindFlags(viperCfg *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}

		if err := viperCfg.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("time_slides", "")
	viperCfg.SetDefault("slides", []string{})
	viperCfg.SetDefault("input", []string{"-"})
	viperCfg.SetDefault("extent_limit", DefaultExtentLimit)

	viperCfg.SetDefault("output.base", DefaultOutputBase)
	viperCfg.SetDefault("output.single_instrument", false)
	viperCfg.SetDefault("output.compress", false)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.format", DefaultLoggingFormat)

	viperCfg.SetDefault("metrics.textfile", "")
}
