// Package config loads the runtime configuration document shared by every console page.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

const (
	// KeyAPIURL names the backend base URL.
	KeyAPIURL = "API_URL"
	// KeyAPIPrefix names the path prefix appended to the base URL for prefixed endpoints.
	KeyAPIPrefix = "API_PREFIX"
	// KeyBackgroundImage names the login background image URL.
	KeyBackgroundImage = "BACKGROUND_IMAGE"

	runtimeConfigType = "json"
	pathSeparator     = "/"

	errorMessageRuntimeConfigUnreadable = "config: runtime configuration unreadable"
	errorMessageMissingAPIURL           = "config: missing API_URL"
	errorMessageInvalidAPIURL           = "config: invalid API_URL"
)

var (
	// ErrRuntimeConfigUnreadable indicates the runtime configuration document could not be read.
	ErrRuntimeConfigUnreadable = errors.New(errorMessageRuntimeConfigUnreadable)
	// ErrMissingAPIURL indicates the runtime configuration omitted the backend base URL.
	ErrMissingAPIURL = errors.New(errorMessageMissingAPIURL)
	// ErrInvalidAPIURL indicates the backend base URL is not an absolute http(s) URL.
	ErrInvalidAPIURL = errors.New(errorMessageInvalidAPIURL)
)

// RuntimeConfig exposes the named configuration keys loaded at startup.
type RuntimeConfig struct {
	apiURL          string
	apiPrefix       string
	backgroundImage string
	loader          *viper.Viper
}

// LoadRuntimeConfig reads the JSON runtime configuration document located at path.
// Environment variables named after a key override the document value.
func LoadRuntimeConfig(path string) (RuntimeConfig, error) {
	loader := viper.New()
	loader.SetConfigFile(strings.TrimSpace(path))
	loader.SetConfigType(runtimeConfigType)
	loader.AutomaticEnv()
	if readErr := loader.ReadInConfig(); readErr != nil {
		return RuntimeConfig{}, fmt.Errorf("%w: %v", ErrRuntimeConfigUnreadable, readErr)
	}
	return newRuntimeConfig(loader)
}

// NewRuntimeConfig builds a RuntimeConfig from explicit values.
func NewRuntimeConfig(apiURL string, apiPrefix string, backgroundImage string) (RuntimeConfig, error) {
	loader := viper.New()
	loader.Set(KeyAPIURL, apiURL)
	loader.Set(KeyAPIPrefix, apiPrefix)
	loader.Set(KeyBackgroundImage, backgroundImage)
	return newRuntimeConfig(loader)
}

func newRuntimeConfig(loader *viper.Viper) (RuntimeConfig, error) {
	apiURL := strings.TrimRight(strings.TrimSpace(loader.GetString(KeyAPIURL)), pathSeparator)
	if apiURL == "" {
		return RuntimeConfig{}, ErrMissingAPIURL
	}
	parsedURL, parseErr := url.Parse(apiURL)
	if parseErr != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return RuntimeConfig{}, fmt.Errorf("%w: %s", ErrInvalidAPIURL, apiURL)
	}

	return RuntimeConfig{
		apiURL:          apiURL,
		apiPrefix:       normalizePrefix(loader.GetString(KeyAPIPrefix)),
		backgroundImage: strings.TrimSpace(loader.GetString(KeyBackgroundImage)),
		loader:          loader,
	}, nil
}

// APIURL returns the backend base URL without a trailing slash.
func (configuration RuntimeConfig) APIURL() string {
	return configuration.apiURL
}

// APIPrefix returns the normalized path prefix, either empty or starting with a slash.
func (configuration RuntimeConfig) APIPrefix() string {
	return configuration.apiPrefix
}

// BackgroundImage returns the login background image URL.
func (configuration RuntimeConfig) BackgroundImage() string {
	return configuration.backgroundImage
}

// Value returns any named key from the runtime document.
func (configuration RuntimeConfig) Value(name string) string {
	if configuration.loader == nil {
		return ""
	}
	return strings.TrimSpace(configuration.loader.GetString(name))
}

// Endpoint joins escaped path segments onto the backend base URL, inserting the prefix when requested.
func (configuration RuntimeConfig) Endpoint(prefixed bool, segments ...string) string {
	var builder strings.Builder
	builder.WriteString(configuration.apiURL)
	if prefixed {
		builder.WriteString(configuration.apiPrefix)
	}
	for _, segment := range segments {
		trimmedSegment := strings.Trim(segment, pathSeparator)
		if trimmedSegment == "" {
			continue
		}
		for _, part := range strings.Split(trimmedSegment, pathSeparator) {
			builder.WriteString(pathSeparator)
			builder.WriteString(url.PathEscape(part))
		}
	}
	return builder.String()
}

func normalizePrefix(prefix string) string {
	trimmedPrefix := strings.Trim(strings.TrimSpace(prefix), pathSeparator)
	if trimmedPrefix == "" {
		return ""
	}
	return pathSeparator + trimmedPrefix
}
