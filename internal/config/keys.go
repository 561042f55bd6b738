package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when a provider has no API key configured.
var ErrNoAPIKey = errors.New("no API key configured")

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// NeedsAPIKey reports whether the provider authenticates with an API key.
// Ollama and Bedrock-backed providers do not.
func NeedsAPIKey(p ProviderConfig) bool {
	return p.Kind != KindOllama && !p.UseBedrock
}

// ResolveAPIKey returns the provider's API key.
// It checks in order: the provider's environment variable, the config file.
func ResolveAPIKey(p ProviderConfig) (string, error) {
	key, _ := resolve(p)
	if key == "" {
		if !NeedsAPIKey(p) {
			return "", nil
		}
		return "", fmt.Errorf("provider %s: %w", p.Name, ErrNoAPIKey)
	}
	return key, nil
}

// APIKeySource returns where the provider's key was sourced from.
func APIKeySource(p ProviderConfig) KeySource {
	_, src := resolve(p)
	return src
}

func resolve(p ProviderConfig) (string, KeySource) {
	if p.APIKeyEnv != "" {
		if key := os.Getenv(p.APIKeyEnv); key != "" {
			return key, KeySourceEnv
		}
	}

	if p.APIKey != "" {
		key := os.ExpandEnv(p.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig
		}
	}

	return "", KeySourceNone
}

// ValidateAPIKey performs basic format validation on a provider key.
// It does not verify the key with the provider.
func ValidateAPIKey(kind, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	if kind == KindAnthropic && !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}
