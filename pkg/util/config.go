package util

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ReadConfig. read config.yaml from configPath (default ./data/), environment variables override file values.
func ReadConfig(configPath string) error {
	if configPath == "" {
		configPath = "./data/"
	}
	viper.SetConfigName("config")
	viper.AddConfigPath(configPath)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}
