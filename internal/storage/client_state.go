package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/model"
)

const (
	// DefaultClientStateTTL is the sliding lifetime of a persisted client state.
	DefaultClientStateTTL = 12 * time.Hour

	errorMessageClientStateNotFound = "storage: client state not found"
	errorMessageLoadClientState     = "storage: load client state"
	errorMessageSaveClientState     = "storage: save client state"
	errorMessageDeleteClientState   = "storage: delete client state"
	errorMessagePurgeClientStates   = "storage: purge expired client states"
	errorMessageMissingClientState  = "storage: client state id is empty"
)

var (
	// ErrClientStateNotFound indicates no live state exists for the identifier.
	ErrClientStateNotFound = errors.New(errorMessageClientStateNotFound)
	// ErrMissingClientStateID indicates an operation was attempted without an identifier.
	ErrMissingClientStateID = errors.New(errorMessageMissingClientState)
)

// ClientStateRepository persists ClientState rows with a sliding expiration.
type ClientStateRepository struct {
	database *gorm.DB
	ttl      time.Duration
	now      func() time.Time
}

// NewClientStateRepository builds a repository. A non-positive ttl uses DefaultClientStateTTL.
func NewClientStateRepository(database *gorm.DB, ttl time.Duration) *ClientStateRepository {
	if ttl <= 0 {
		ttl = DefaultClientStateTTL
	}
	return &ClientStateRepository{
		database: database,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load returns the live state for identifier. Expired rows are reported as not found.
func (repository *ClientStateRepository) Load(ctx context.Context, identifier string) (model.ClientState, error) {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if trimmedIdentifier == "" {
		return model.ClientState{}, ErrMissingClientStateID
	}
	var state model.ClientState
	queryErr := repository.database.WithContext(ctx).First(&state, "id = ?", trimmedIdentifier).Error
	if errors.Is(queryErr, gorm.ErrRecordNotFound) {
		return model.ClientState{}, ErrClientStateNotFound
	}
	if queryErr != nil {
		return model.ClientState{}, fmt.Errorf("%s: %w", errorMessageLoadClientState, queryErr)
	}
	if state.Expired(repository.now().UTC()) {
		return model.ClientState{}, ErrClientStateNotFound
	}
	return state, nil
}

// Save inserts or updates state and pushes its expiration forward.
func (repository *ClientStateRepository) Save(ctx context.Context, state model.ClientState) (model.ClientState, error) {
	if strings.TrimSpace(state.ID) == "" {
		return model.ClientState{}, ErrMissingClientStateID
	}
	now := repository.now().UTC()
	state.ExpiresAt = now.Add(repository.ttl)
	state.UpdatedAt = now
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	upsertErr := repository.database.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "username", "theme", "updated_at", "expires_at"}),
		}).
		Create(&state).Error
	if upsertErr != nil {
		return model.ClientState{}, fmt.Errorf("%s: %w", errorMessageSaveClientState, upsertErr)
	}
	return state, nil
}

// Delete removes the state for identifier. Missing rows are not an error.
func (repository *ClientStateRepository) Delete(ctx context.Context, identifier string) error {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if trimmedIdentifier == "" {
		return ErrMissingClientStateID
	}
	if deleteErr := repository.database.WithContext(ctx).Delete(&model.ClientState{}, "id = ?", trimmedIdentifier).Error; deleteErr != nil {
		return fmt.Errorf("%s: %w", errorMessageDeleteClientState, deleteErr)
	}
	return nil
}

// PurgeExpired deletes every state whose expiration is at or before now.
func (repository *ClientStateRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := repository.database.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&model.ClientState{})
	if result.Error != nil {
		return 0, fmt.Errorf("%s: %w", errorMessagePurgeClientStates, result.Error)
	}
	return result.RowsAffected, nil
}
