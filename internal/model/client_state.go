package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	clientStateTokenMaxLength    = 4096
	clientStateUsernameMaxLength = 320
)

var (
	ErrInvalidClientStateID    = errors.New("invalid_client_state_id")
	ErrInvalidClientStateToken = errors.New("invalid_client_state_token")
	ErrInvalidTheme            = errors.New("invalid_theme")
)

// ClientState is the per-browser state that survives console restarts: the backend bearer token,
// the username typed at login and the chosen theme.
type ClientState struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Token     string    `gorm:"size:4096"`
	Username  string    `gorm:"size:320"`
	Theme     string    `gorm:"not null;size:8"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

// ClientStateInput holds the raw values used to construct a ClientState.
type ClientStateInput struct {
	ID       string
	Token    string
	Username string
	Theme    string
}

// NewClientState validates and normalizes input. An empty ID receives a fresh identifier.
func NewClientState(input ClientStateInput) (ClientState, error) {
	identifier := strings.TrimSpace(input.ID)
	if identifier == "" {
		identifier = uuid.NewString()
	} else if _, parseErr := uuid.Parse(identifier); parseErr != nil {
		return ClientState{}, fmt.Errorf("%w: %v", ErrInvalidClientStateID, parseErr)
	}

	token := strings.TrimSpace(input.Token)
	if len(token) > clientStateTokenMaxLength {
		return ClientState{}, fmt.Errorf("%w: too long", ErrInvalidClientStateToken)
	}

	username := strings.TrimSpace(input.Username)
	if len(username) > clientStateUsernameMaxLength {
		username = username[:clientStateUsernameMaxLength]
	}

	theme, themeErr := NormalizeTheme(input.Theme)
	if themeErr != nil {
		return ClientState{}, themeErr
	}

	return ClientState{
		ID:       identifier,
		Token:    token,
		Username: username,
		Theme:    theme,
	}, nil
}

// NormalizeTheme maps an empty theme to light and rejects anything but light or dark.
func NormalizeTheme(theme string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(theme))
	switch normalized {
	case "":
		return ThemeLight, nil
	case ThemeLight, ThemeDark:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidTheme, theme)
	}
}

// Authenticated reports whether a bearer token is held.
func (state ClientState) Authenticated() bool {
	return state.Token != ""
}

// Expired reports whether the state outlived its sliding expiration.
func (state ClientState) Expired(now time.Time) bool {
	return !state.ExpiresAt.IsZero() && !now.Before(state.ExpiresAt)
}
