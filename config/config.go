package config

import (
	"encoding/json"
	"os"
	"sync"
)

type Config struct {
	DBPath        string `json:"dbPath"`
	Port          string `json:"port"`
	Timezone      string `json:"timezone"`
	JWTSecret     string `json:"jwtSecret"`
	TokenTTLHours int    `json:"tokenTTLHours"`
}

var (
	cfg Config
	mu  sync.RWMutex
)

const configFilePath = "./requisas_config.json"

func defaults(c Config) Config {
	if c.DBPath == "" {
		c.DBPath = "./requisas.db"
	}
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.JWTSecret == "" {
		c.JWTSecret = "requisas-dev-secret"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 24
	}
	return c
}

// applyEnv overlays environment variables on top of the file config. main
// loads an optional .env first, so either source works.
func applyEnv(c Config) Config {
	if v := os.Getenv("REQUISAS_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("REQUISAS_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("REQUISAS_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("REQUISAS_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	return c
}

func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	file, err := os.ReadFile(configFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = applyEnv(defaults(Config{}))
			return cfg, nil
		}
		return Config{}, err
	}

	var tempCfg Config
	if err := json.Unmarshal(file, &tempCfg); err != nil {
		return Config{}, err
	}
	cfg = applyEnv(defaults(tempCfg))

	return cfg, nil
}

func SaveConfig(newCfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	newCfg = defaults(newCfg)

	file, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(configFilePath, file, 0644); err != nil {
		return err
	}
	cfg = newCfg
	return nil
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}
