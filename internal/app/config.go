package app

import (
	"github.com/devmob/onboard/internal/infra/config"
)

// LoadConfig loads application configuration.
func LoadConfig() (*config.Config, error) {
	return config.Load()
}
