package helpers

import (
	"fmt"
	"strings"

	"github.com/doeshing/gensh/internal/app"
	configapp "github.com/doeshing/gensh/internal/application/config"
	"github.com/doeshing/gensh/internal/domain"
	configinfra "github.com/doeshing/gensh/internal/infrastructure/config"
)

// GetConfigLoader extracts the config loader from container with error handling
func GetConfigLoader(container *app.Container) (*configinfra.FileLoader, error) {
	if container.ConfigLoader == nil {
		return nil, fmt.Errorf("config loader unavailable")
	}
	return container.ConfigLoader, nil
}

// SaveConfigWithValidation validates and saves configuration. The loader keeps
// a .bak copy of the previous file.
func SaveConfigWithValidation(container *app.Container, cfg domain.Config) error {
	loader, err := GetConfigLoader(container)
	if err != nil {
		return err
	}

	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	container.Config = cfg
	return nil
}

// DisplayValue masks credentials for display.
func DisplayValue(key, value string) string {
	if !domain.IsSecretKey(key) || value == "" {
		return value
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
