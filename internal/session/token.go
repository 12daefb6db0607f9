package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	claimUserID = "id"

	errorMessageMalformedToken = "session: malformed bearer token"
	errorMessageMissingUserID  = "session: bearer token has no id claim"
)

var (
	// ErrMalformedToken indicates the bearer token is not a parseable JWT.
	ErrMalformedToken = errors.New(errorMessageMalformedToken)
	// ErrMissingUserID indicates the token carries no usable id claim.
	ErrMissingUserID = errors.New(errorMessageMissingUserID)
)

// DecodeUserID reads the id claim from a bearer JWT without verifying its signature.
func DecodeUserID(token string) (string, error) {
	parser := jwt.NewParser(jwt.WithJSONNumber())
	claims := jwt.MapClaims{}
	if _, _, parseErr := parser.ParseUnverified(strings.TrimSpace(token), claims); parseErr != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, parseErr)
	}
	switch identifier := claims[claimUserID].(type) {
	case json.Number:
		return identifier.String(), nil
	case float64:
		return strconv.FormatFloat(identifier, 'f', -1, 64), nil
	case string:
		if trimmed := strings.TrimSpace(identifier); trimmed != "" {
			return trimmed, nil
		}
	}
	return "", ErrMissingUserID
}
