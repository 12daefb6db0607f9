package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	logEventSessionRejected  = "session_rejected"
	logEventSessionCheck     = "session_check_failed"
	logEventDecodeToken      = "decode_token_failed"
	logEventFetchUser        = "fetch_user_failed"
	logEventFetchMenu        = "fetch_menu_failed"
	logFieldLevel            = "level"
	errorMessageNotSignedIn  = "session: not signed in"
	errorMessageUserNotReady = "session: user not loaded"
)

var (
	// ErrNotSignedIn indicates an operation that needs a token on an unauthenticated store.
	ErrNotSignedIn = errors.New(errorMessageNotSignedIn)
	// ErrUserNotLoaded indicates the user record has not been fetched yet.
	ErrUserNotLoaded = errors.New(errorMessageUserNotReady)
)

// Store holds the authentication state of one browser session.
type Store struct {
	backend Backend
	logger  *zap.Logger

	authenticateMutex sync.Mutex

	mutex     sync.RWMutex
	state     State
	token     string
	user      User
	menu      []MenuItem
	levels    map[Level][]MenuItem
	theme     string
	lastError error
}

// NewStore builds an unauthenticated store.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		logger:  logger,
		levels:  make(map[Level][]MenuItem),
	}
}

// State returns the current authentication state.
func (store *Store) State() State {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.state
}

// Token returns the bearer token, empty when unauthenticated.
func (store *Store) Token() string {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.token
}

// User returns the loaded user record.
func (store *Store) User() User {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.user
}

// MenuItems returns the sidebar menu.
func (store *Store) MenuItems() []MenuItem {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return append([]MenuItem(nil), store.menu...)
}

// Theme returns the browser's theme.
func (store *Store) Theme() string {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.theme
}

// LastError returns the failure that kept the store from reaching Ready.
func (store *Store) LastError() error {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.lastError
}

func (store *Store) setTheme(theme string) {
	store.mutex.Lock()
	store.theme = theme
	store.mutex.Unlock()
}

// Authenticate validates token with the backend and then loads the user and sidebar menu, in that
// order. A rejected token leaves the store Unauthenticated without further calls. A failure after
// the token was accepted is logged and recorded and leaves the store Authenticated.
func (store *Store) Authenticate(ctx context.Context, token string) State {
	store.authenticateMutex.Lock()
	defer store.authenticateMutex.Unlock()

	trimmedToken := strings.TrimSpace(token)
	if trimmedToken == "" {
		store.reset(nil)
		return Unauthenticated
	}

	valid, checkErr := store.backend.CheckSession(ctx, trimmedToken)
	if checkErr != nil {
		store.logger.Warn(logEventSessionCheck, zap.Error(checkErr))
	}
	if !valid {
		store.logger.Info(logEventSessionRejected)
		store.reset(checkErr)
		return Unauthenticated
	}

	store.mutex.Lock()
	store.state = Authenticated
	store.token = trimmedToken
	store.user = User{}
	store.menu = nil
	store.levels = make(map[Level][]MenuItem)
	store.lastError = nil
	store.mutex.Unlock()

	userID, decodeErr := DecodeUserID(trimmedToken)
	if decodeErr != nil {
		store.logger.Warn(logEventDecodeToken, zap.Error(decodeErr))
		store.recordFailure(decodeErr)
		return Authenticated
	}

	user, userErr := store.backend.FetchUser(ctx, trimmedToken, userID)
	if userErr != nil {
		store.logger.Warn(logEventFetchUser, zap.Error(userErr))
		store.recordFailure(userErr)
		return Authenticated
	}
	store.mutex.Lock()
	store.user = user
	store.mutex.Unlock()

	menu, menuErr := store.backend.FetchModules(ctx, trimmedToken, user.ProfileID, LevelSidebar)
	if menuErr != nil {
		store.logger.Warn(logEventFetchMenu, zap.String(logFieldLevel, string(LevelSidebar)), zap.Error(menuErr))
		store.recordFailure(menuErr)
		return Authenticated
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.menu = SortMenu(menu)
	store.levels[LevelSidebar] = store.menu
	store.state = Ready
	return Ready
}

// Menu returns the modules for level, fetching each level once per store.
func (store *Store) Menu(ctx context.Context, level Level) ([]MenuItem, error) {
	store.mutex.RLock()
	state := store.state
	token := store.token
	profileID := store.user.ProfileID
	cached, found := store.levels[level]
	store.mutex.RUnlock()

	if state == Unauthenticated {
		return nil, ErrNotSignedIn
	}
	if found {
		return append([]MenuItem(nil), cached...), nil
	}
	if profileID == "" {
		return nil, ErrUserNotLoaded
	}

	menu, menuErr := store.backend.FetchModules(ctx, token, profileID, level)
	if menuErr != nil {
		store.logger.Warn(logEventFetchMenu, zap.String(logFieldLevel, string(level)), zap.Error(menuErr))
		return nil, fmt.Errorf("%s %s: %w", errorMessageFetchModules, level, menuErr)
	}
	sorted := SortMenu(menu)
	store.mutex.Lock()
	if store.token == token {
		store.levels[level] = sorted
	}
	store.mutex.Unlock()
	return append([]MenuItem(nil), sorted...), nil
}

// Reset drops the token and everything loaded with it.
func (store *Store) Reset() {
	store.reset(nil)
}

func (store *Store) reset(cause error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.state = Unauthenticated
	store.token = ""
	store.user = User{}
	store.menu = nil
	store.levels = make(map[Level][]MenuItem)
	store.lastError = cause
}

func (store *Store) recordFailure(failure error) {
	store.mutex.Lock()
	store.lastError = failure
	store.mutex.Unlock()
}
