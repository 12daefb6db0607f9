// Package session tracks who is signed in to the console for each browser and the navigation
// modules their profile may open.
package session

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// State is the authentication progress of a browser session.
type State int

const (
	Unauthenticated State = iota
	// Authenticated means the backend accepted the token but the user or menu is not loaded yet.
	Authenticated
	// Ready means the user record and sidebar menu are available.
	Ready
)

func (state State) String() string {
	switch state {
	case Authenticated:
		return "authenticated"
	case Ready:
		return "ready"
	default:
		return "unauthenticated"
	}
}

// Level selects which module list the backend returns for a profile.
type Level string

const (
	LevelSidebar     Level = "sidebar"
	LevelMenu        Level = "menu"
	LevelSettings    Level = "settings"
	LevelConnections Level = "connections"
)

const defaultAvatar = "/img/usuario.png"

// User is the signed-in operator.
type User struct {
	ID        string
	Name      string
	Email     string
	Profile   string
	ProfileID string
	Avatar    string
}

// MenuItem is a navigation entry granted to the user's profile.
type MenuItem struct {
	Label       string
	Icon        string
	Path        string
	Description string
}

// SortMenu orders items by label using Spanish collation.
func SortMenu(items []MenuItem) []MenuItem {
	sorted := make([]MenuItem, len(items))
	copy(sorted, items)
	collator := collate.New(language.Spanish)
	sort.SliceStable(sorted, func(left int, right int) bool {
		return collator.CompareString(sorted[left].Label, sorted[right].Label) < 0
	})
	return sorted
}
