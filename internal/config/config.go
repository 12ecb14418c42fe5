package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	DataDir         string  `mapstructure:"DATA_DIR"`
	OverpassURL     string  `mapstructure:"OVERPASS_URL"`
	NominatimURL    string  `mapstructure:"NOMINATIM_URL"`
	UserAgent       string  `mapstructure:"USER_AGENT"`
	BackendBin      string  `mapstructure:"OSM2STREETS_BIN"`
	OverpassRPS     float64 `mapstructure:"OVERPASS_RPS"`
	DownloadTimeout int     `mapstructure:"DOWNLOAD_TIMEOUT_SECONDS"`
	BackendTimeout  int     `mapstructure:"BACKEND_TIMEOUT_SECONDS"`
}

func LoadConfig() (c Config, err error) {
	// Get environment type from ENV variable or use development as default
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Set default values
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("OVERPASS_URL", "https://lz4.overpass-api.de/api/interpreter")
	viper.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	viper.SetDefault("USER_AGENT", "kerbside/0.1.0")
	viper.SetDefault("OSM2STREETS_BIN", "osm2streets")
	viper.SetDefault("OVERPASS_RPS", 0.5)
	viper.SetDefault("DOWNLOAD_TIMEOUT_SECONDS", 120)
	viper.SetDefault("BACKEND_TIMEOUT_SECONDS", 180)

	// Load environment file
	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	viper.AddConfigPath(".") // Look in the project root directory

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		// Continue even if file is not found
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	// Map the values to the Config struct
	err = viper.Unmarshal(&c)
	return
}
