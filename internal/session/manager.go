package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/model"
)

const (
	defaultIdleTimeout = 12 * time.Hour
	touchInterval      = time.Minute

	logEventLoadState    = "client_state_load_failed"
	logEventSaveState    = "client_state_save_failed"
	logEventDeleteState  = "client_state_delete_failed"
	logEventRestored     = "session_restored"
	logFieldSessionState = "state"

	errorMessageMissingSessionID = "session: missing session id"
	errorMessageSessionRejected  = "session: backend rejected the new token"
	errorMessagePersistState     = "session: persist client state"
)

var (
	// ErrMissingSessionID indicates a call without a browser session identifier.
	ErrMissingSessionID = errors.New(errorMessageMissingSessionID)
	// ErrSessionRejected indicates the backend refused a token right after issuing it.
	ErrSessionRejected = errors.New(errorMessageSessionRejected)
	// ErrStateNotFound is returned by a StateRepository when no live state exists.
	ErrStateNotFound = errors.New("session: client state not found")
)

// StateRepository persists client state across console restarts.
type StateRepository interface {
	Load(ctx context.Context, identifier string) (model.ClientState, error)
	Save(ctx context.Context, state model.ClientState) (model.ClientState, error)
	Delete(ctx context.Context, identifier string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// ManagerConfig captures the Manager dependencies.
type ManagerConfig struct {
	Backend    Backend
	Repository StateRepository
	Logger     *zap.Logger
	// NotFound tells Manager which repository error means "no state".
	NotFound    error
	IdleTimeout time.Duration
}

type managedStore struct {
	store     *Store
	username  string
	touchedAt time.Time
}

// Manager owns one Store per browser session.
type Manager struct {
	backend     Backend
	repository  StateRepository
	logger      *zap.Logger
	notFound    error
	idleTimeout time.Duration
	now         func() time.Time

	mutex    sync.Mutex
	stores   map[string]*managedStore
	restores singleflight.Group
}

// NewManager builds a Manager.
func NewManager(configuration ManagerConfig) *Manager {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	idleTimeout := configuration.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	notFound := configuration.NotFound
	if notFound == nil {
		notFound = ErrStateNotFound
	}
	return &Manager{
		backend:     configuration.Backend,
		repository:  configuration.Repository,
		logger:      logger,
		notFound:    notFound,
		idleTimeout: idleTimeout,
		now:         time.Now,
		stores:      make(map[string]*managedStore),
	}
}

// Resolve returns the store for sessionID. A session unknown to this process is restored from the
// repository and its token re-authenticated once.
func (manager *Manager) Resolve(ctx context.Context, sessionID string) *Store {
	trimmedID := strings.TrimSpace(sessionID)
	if trimmedID == "" {
		return manager.emptyStore()
	}
	if entry := manager.cached(trimmedID); entry != nil {
		manager.touch(ctx, trimmedID, entry)
		return entry.store
	}

	restored, _, _ := manager.restores.Do(trimmedID, func() (any, error) {
		if entry := manager.cached(trimmedID); entry != nil {
			return entry, nil
		}
		return manager.restore(ctx, trimmedID), nil
	})
	return restored.(*managedStore).store
}

// Login authenticates a freshly issued token for sessionID and persists it with username.
func (manager *Manager) Login(ctx context.Context, sessionID string, username string, token string) (*Store, error) {
	trimmedID := strings.TrimSpace(sessionID)
	if trimmedID == "" {
		return nil, ErrMissingSessionID
	}
	theme := manager.currentTheme(ctx, trimmedID)

	store := NewStore(manager.backend, manager.logger)
	store.setTheme(theme)
	if store.Authenticate(ctx, token) == Unauthenticated {
		return store, ErrSessionRejected
	}

	entry := &managedStore{store: store, username: strings.TrimSpace(username), touchedAt: manager.now()}
	if persistErr := manager.persist(ctx, trimmedID, entry); persistErr != nil {
		return store, persistErr
	}
	manager.mutex.Lock()
	manager.stores[trimmedID] = entry
	manager.mutex.Unlock()
	return store, nil
}

// Logout forgets sessionID and destroys its persisted state, theme included.
func (manager *Manager) Logout(ctx context.Context, sessionID string) {
	trimmedID := strings.TrimSpace(sessionID)
	if trimmedID == "" {
		return
	}
	manager.mutex.Lock()
	entry := manager.stores[trimmedID]
	delete(manager.stores, trimmedID)
	manager.mutex.Unlock()
	if entry != nil {
		entry.store.Reset()
	}
	if manager.repository != nil {
		if deleteErr := manager.repository.Delete(ctx, trimmedID); deleteErr != nil {
			manager.logger.Warn(logEventDeleteState, zap.Error(deleteErr))
		}
	}
}

// SetTheme records the theme for sessionID, signed in or not.
func (manager *Manager) SetTheme(ctx context.Context, sessionID string, theme string) (string, error) {
	trimmedID := strings.TrimSpace(sessionID)
	if trimmedID == "" {
		return "", ErrMissingSessionID
	}
	normalizedTheme, themeErr := model.NormalizeTheme(theme)
	if themeErr != nil {
		return "", themeErr
	}
	entry := manager.cached(trimmedID)
	if entry == nil {
		entry = manager.restore(ctx, trimmedID)
	}
	entry.store.setTheme(normalizedTheme)
	if persistErr := manager.persist(ctx, trimmedID, entry); persistErr != nil {
		return normalizedTheme, persistErr
	}
	return normalizedTheme, nil
}

// PurgeExpired drops idle in-memory stores and expired persisted states.
func (manager *Manager) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	manager.mutex.Lock()
	for sessionID, entry := range manager.stores {
		if now.Sub(entry.touchedAt) >= manager.idleTimeout {
			delete(manager.stores, sessionID)
		}
	}
	manager.mutex.Unlock()
	if manager.repository == nil {
		return 0, nil
	}
	return manager.repository.PurgeExpired(ctx, now)
}

// Username returns the login name persisted with sessionID, empty for unknown sessions.
func (manager *Manager) Username(sessionID string) string {
	entry := manager.cached(strings.TrimSpace(sessionID))
	if entry == nil {
		return ""
	}
	return entry.username
}

// Sessions reports how many stores are held in memory.
func (manager *Manager) Sessions() int {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	return len(manager.stores)
}

func (manager *Manager) emptyStore() *Store {
	store := NewStore(manager.backend, manager.logger)
	store.setTheme(model.ThemeLight)
	return store
}

func (manager *Manager) cached(sessionID string) *managedStore {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	entry, found := manager.stores[sessionID]
	if !found {
		return nil
	}
	if manager.now().Sub(entry.touchedAt) >= manager.idleTimeout {
		delete(manager.stores, sessionID)
		return nil
	}
	return entry
}

func (manager *Manager) restore(ctx context.Context, sessionID string) *managedStore {
	entry := &managedStore{store: manager.emptyStore(), touchedAt: manager.now()}
	if manager.repository == nil {
		return entry
	}
	persisted, loadErr := manager.repository.Load(ctx, sessionID)
	if loadErr != nil {
		if !errors.Is(loadErr, manager.notFound) {
			manager.logger.Warn(logEventLoadState, zap.Error(loadErr))
		}
		return entry
	}
	entry.username = persisted.Username
	entry.store.setTheme(persisted.Theme)
	if persisted.Authenticated() {
		state := entry.store.Authenticate(ctx, persisted.Token)
		manager.logger.Info(logEventRestored, zap.String(logFieldSessionState, state.String()))
		if state == Unauthenticated {
			if persistErr := manager.persist(ctx, sessionID, entry); persistErr != nil {
				manager.logger.Warn(logEventSaveState, zap.Error(persistErr))
			}
		}
	}
	manager.mutex.Lock()
	manager.stores[sessionID] = entry
	manager.mutex.Unlock()
	return entry
}

func (manager *Manager) touch(ctx context.Context, sessionID string, entry *managedStore) {
	now := manager.now()
	manager.mutex.Lock()
	stale := now.Sub(entry.touchedAt) >= touchInterval
	if stale {
		entry.touchedAt = now
	}
	manager.mutex.Unlock()
	if !stale {
		return
	}
	if persistErr := manager.persist(ctx, sessionID, entry); persistErr != nil {
		manager.logger.Warn(logEventSaveState, zap.Error(persistErr))
	}
}

func (manager *Manager) currentTheme(ctx context.Context, sessionID string) string {
	if entry := manager.cached(sessionID); entry != nil {
		return entry.store.Theme()
	}
	if manager.repository != nil {
		if persisted, loadErr := manager.repository.Load(ctx, sessionID); loadErr == nil {
			return persisted.Theme
		}
	}
	return model.ThemeLight
}

func (manager *Manager) persist(ctx context.Context, sessionID string, entry *managedStore) error {
	if manager.repository == nil {
		return nil
	}
	state, stateErr := model.NewClientState(model.ClientStateInput{
		ID:       sessionID,
		Token:    entry.store.Token(),
		Username: entry.username,
		Theme:    entry.store.Theme(),
	})
	if stateErr != nil {
		return fmt.Errorf("%s: %w", errorMessagePersistState, stateErr)
	}
	if _, saveErr := manager.repository.Save(ctx, state); saveErr != nil {
		return fmt.Errorf("%s: %w", errorMessagePersistState, saveErr)
	}
	return nil
}
