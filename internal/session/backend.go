package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/apiclient"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/config"
)

const (
	endpointLogin        = "login"
	endpointCheckSession = "auth/check-session"
	endpointUsers        = "users"
	endpointModules      = "modules/all"
	queryKeyProfile      = "profile"
	queryKeyLevel        = "level"

	// MessageInvalidCredentials is shown when the backend rejects the username or password.
	MessageInvalidCredentials = "Usuario o contraseña incorrectos."
	// MessageLoginFailed is shown when the backend refuses the login without a message.
	MessageLoginFailed = "Error al iniciar sesión."
	// MessageBackendUnreachable is shown when the backend cannot be reached.
	MessageBackendUnreachable = "Error de conexión con el servidor."

	errorMessageInvalidCredentials = "session: invalid credentials"
	errorMessageBackendUnreachable = "session: backend unreachable"
	errorMessageLoginRejected      = "session: login rejected"
	errorMessageMissingToken       = "session: login response has no token"
	errorMessageFetchUser          = "session: fetch user"
	errorMessageFetchModules       = "session: fetch modules"
)

var (
	// ErrInvalidCredentials indicates the backend answered 401 to a login.
	ErrInvalidCredentials = errors.New(errorMessageInvalidCredentials)
	// ErrBackendUnreachable indicates no response was obtained.
	ErrBackendUnreachable = errors.New(errorMessageBackendUnreachable)
	// ErrMissingToken indicates an accepted login without a token in the payload.
	ErrMissingToken = errors.New(errorMessageMissingToken)
)

// LoginRejectedError carries the backend's explanation for a refused login.
type LoginRejectedError struct {
	Status  int
	Message string
}

func (rejection *LoginRejectedError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", errorMessageLoginRejected, rejection.Status, rejection.Message)
}

// LoginFailureMessage renders a login error for the login page.
func LoginFailureMessage(err error) string {
	var rejection *LoginRejectedError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return MessageInvalidCredentials
	case errors.Is(err, ErrBackendUnreachable):
		return MessageBackendUnreachable
	case errors.As(err, &rejection) && rejection.Message != "":
		return rejection.Message
	default:
		return MessageLoginFailed
	}
}

// Backend is the subset of the acquisition API the session layer depends on.
type Backend interface {
	Login(ctx context.Context, username string, password string) (string, error)
	CheckSession(ctx context.Context, token string) (bool, error)
	FetchUser(ctx context.Context, token string, userID string) (User, error)
	FetchModules(ctx context.Context, token string, profileID string, level Level) ([]MenuItem, error)
}

// APIBackend implements Backend over the REST client.
type APIBackend struct {
	client  *apiclient.Client
	runtime config.RuntimeConfig
}

// NewAPIBackend builds an APIBackend.
func NewAPIBackend(client *apiclient.Client, runtimeConfig config.RuntimeConfig) *APIBackend {
	return &APIBackend{client: client, runtime: runtimeConfig}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login posts the credentials without authentication. Only 202 Accepted counts as success.
func (backend *APIBackend) Login(ctx context.Context, username string, password string) (string, error) {
	response, postErr := backend.client.Post(ctx, backend.runtime.Endpoint(false, endpointLogin), loginRequest{Username: username, Password: password}, apiclient.WithoutAuth())
	if postErr != nil {
		if errors.Is(postErr, apiclient.ErrTransport) {
			return "", fmt.Errorf("%w: %v", ErrBackendUnreachable, postErr)
		}
		if apiclient.IsUnauthorized(postErr) {
			return "", ErrInvalidCredentials
		}
		if statusError, isStatusError := apiclient.AsStatusError(postErr); isStatusError {
			return "", &LoginRejectedError{Status: statusError.Status, Message: statusError.Message}
		}
		return "", postErr
	}
	if response.Status != http.StatusAccepted {
		return "", &LoginRejectedError{Status: response.Status, Message: response.Message()}
	}
	var payload loginResponse
	if decodeErr := response.Decode(&payload); decodeErr != nil || strings.TrimSpace(payload.Token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(payload.Token), nil
}

// CheckSession reports whether the backend still accepts token. Valid iff the backend answers 202.
func (backend *APIBackend) CheckSession(ctx context.Context, token string) (bool, error) {
	response, getErr := backend.client.Get(ctx, backend.runtime.Endpoint(true, endpointCheckSession), nil, apiclient.WithToken(token))
	if getErr != nil {
		if _, isStatusError := apiclient.AsStatusError(getErr); isStatusError {
			return false, nil
		}
		return false, getErr
	}
	return response.Status == http.StatusAccepted, nil
}

type userRecord struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	ImageID  any    `json:"imageId"`
	Profiles []struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	} `json:"profiles"`
}

// FetchUser loads the user record and maps it to a User.
func (backend *APIBackend) FetchUser(ctx context.Context, token string, userID string) (User, error) {
	response, getErr := backend.client.Get(ctx, backend.runtime.Endpoint(false, endpointUsers, userID), nil, apiclient.WithToken(token))
	if getErr != nil {
		return User{}, fmt.Errorf("%s: %w", errorMessageFetchUser, getErr)
	}
	var record userRecord
	if decodeErr := response.Decode(&record); decodeErr != nil {
		return User{}, fmt.Errorf("%s: %w", errorMessageFetchUser, decodeErr)
	}
	user := User{
		ID:     userID,
		Name:   record.FullName,
		Email:  record.Username,
		Avatar: defaultAvatar,
	}
	if imageID, isString := record.ImageID.(string); isString && strings.TrimSpace(imageID) != "" {
		user.Avatar = imageID
	}
	if len(record.Profiles) > 0 {
		user.Profile = record.Profiles[0].Name
		user.ProfileID = record.Profiles[0].ID.String()
	}
	return user, nil
}

type moduleRecord struct {
	Name        string `json:"name"`
	Route       string `json:"route"`
	IconName    string `json:"iconName"`
	Description string `json:"description"`
}

// FetchModules lists the modules granted to profileID at level, sorted by label.
func (backend *APIBackend) FetchModules(ctx context.Context, token string, profileID string, level Level) ([]MenuItem, error) {
	query := url.Values{}
	query.Set(queryKeyProfile, profileID)
	query.Set(queryKeyLevel, string(level))
	response, getErr := backend.client.Get(ctx, backend.runtime.Endpoint(true, endpointModules), query, apiclient.WithToken(token))
	if getErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageFetchModules, getErr)
	}
	var records []moduleRecord
	if decodeErr := response.Decode(&records); decodeErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageFetchModules, decodeErr)
	}
	items := make([]MenuItem, 0, len(records))
	for _, record := range records {
		items = append(items, MenuItem{Label: record.Name, Icon: record.IconName, Path: record.Route, Description: record.Description})
	}
	return SortMenu(items), nil
}
