// Package catalog declares every entity page the console serves: where its records live on the
// backend, how they are listed, which fields register and edit them and which option sources
// those fields draw from.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/config"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/table"
)

const (
	defaultIDKey = "id"

	pageRegister = "register"
	pageDetails  = "details"
	pageEdit     = "edit"
	pageDelete   = "delete"

	crumbRegister = "Registro"
	crumbDetails  = "Detalle"
	crumbEdit     = "Actualizar"
	crumbDelete   = "Eliminar"

	defaultMessageCreated = "Registro guardado correctamente"
	defaultMessageUpdated = "Registro actualizado correctamente"
	defaultMessageDeleted = "Registro eliminado correctamente"

	errorMessageUnknownEntity = "catalog: unknown entity"
	errorMessageUnknownAction = "catalog: unknown row action"
	errorMessageDuplicateKey  = "catalog: duplicate entity key"
)

var (
	// ErrUnknownEntity indicates a lookup for an entity that is not registered.
	ErrUnknownEntity = errors.New(errorMessageUnknownEntity)
	// ErrUnknownAction indicates a row action the entity does not offer.
	ErrUnknownAction = errors.New(errorMessageUnknownAction)
	// ErrDuplicateKey indicates two entities registered under one key or route.
	ErrDuplicateKey = errors.New(errorMessageDuplicateKey)
)

// Breadcrumb is one step of the navigation trail shown above a page.
type Breadcrumb struct {
	Name  string
	Route string
}

// Endpoint locates a backend resource. Prefixed endpoints sit under API_PREFIX.
type Endpoint struct {
	Prefixed bool
	Path     string
}

// URL resolves the endpoint, appending segments such as a record id.
func (endpoint Endpoint) URL(runtimeConfig config.RuntimeConfig, segments ...string) string {
	return runtimeConfig.Endpoint(endpoint.Prefixed, append([]string{endpoint.Path}, segments...)...)
}

func (endpoint Endpoint) defined() bool {
	return strings.TrimSpace(endpoint.Path) != ""
}

// Action is an entity-specific operation posted to the backend for one record.
type Action struct {
	Name     string
	Label    string
	Icon     string
	Confirm  string
	Endpoint Endpoint
	Success  string
}

// Detail is one labelled value on a details page. Key accepts a dot-path.
type Detail struct {
	Label  string
	Key    string
	Format func(value any) string
}

// DetailTable lists a nested array of the record on its details page. It is hidden when empty.
type DetailTable struct {
	Title    string
	Key      string
	Columns  []table.Column
	PageSize int
}

// ItemEditor lets a register form collect a list of sub-records before submitting them under Key.
type ItemEditor struct {
	Key     string
	Title   string
	Fields  []form.FieldDescriptor
	Columns []table.Column
}

// Messages are the confirmations shown after a successful mutation.
type Messages struct {
	Created string
	Updated string
	Deleted string
}

// Entity describes one backend resource and its console pages.
type Entity struct {
	Key      string
	Title    string
	Singular string
	Subtitle string
	// Route is the console path of the list page, matching the routes the backend hands out in menus.
	Route   string
	Parents []Breadcrumb

	// Collection lists and creates records. List, Item and Remove override it when defined.
	Collection Endpoint
	List       Endpoint
	Item       Endpoint
	Remove     Endpoint
	IDKey      string

	Columns      []table.Column
	Fields       []form.FieldDescriptor
	EditFields   []form.FieldDescriptor
	Details      []Detail
	DetailTables []DetailTable
	Items        *ItemEditor
	Capabilities table.Capabilities
	Register     bool
	Actions      []Action

	// CustomRegister keeps the register link but leaves the register page to a dedicated handler.
	CustomRegister bool

	// Defaults are merged into register payloads for keys the form did not produce.
	Defaults map[string]any
	// Nullable keys submit null instead of an empty selection.
	Nullable []string
	// Invalidates names the option sources that list this entity.
	Invalidates []string
	Messages    Messages
}

// Editable reports whether the entity has an edit page.
func (entity Entity) Editable() bool {
	return entity.Capabilities.Edit && len(entity.EditFields) > 0
}

// IdentifierKey returns the row key holding the record id.
func (entity Entity) IdentifierKey() string {
	if entity.IDKey == "" {
		return defaultIDKey
	}
	return entity.IDKey
}

// ListURL returns the backend URL listing every record.
func (entity Entity) ListURL(runtimeConfig config.RuntimeConfig) string {
	if entity.List.defined() {
		return entity.List.URL(runtimeConfig)
	}
	return entity.Collection.URL(runtimeConfig)
}

// CreateURL returns the backend URL receiving new records.
func (entity Entity) CreateURL(runtimeConfig config.RuntimeConfig) string {
	return entity.Collection.URL(runtimeConfig)
}

// ItemURL returns the backend URL of one record.
func (entity Entity) ItemURL(runtimeConfig config.RuntimeConfig, identifier string) string {
	if entity.Item.defined() {
		return entity.Item.URL(runtimeConfig, identifier)
	}
	return entity.Collection.URL(runtimeConfig, identifier)
}

// DeleteURL returns the backend URL that deletes one record.
func (entity Entity) DeleteURL(runtimeConfig config.RuntimeConfig, identifier string) string {
	if entity.Remove.defined() {
		return entity.Remove.URL(runtimeConfig, identifier)
	}
	return entity.ItemURL(runtimeConfig, identifier)
}

// Action finds a row action by name.
func (entity Entity) Action(name string) (Action, error) {
	for _, action := range entity.Actions {
		if action.Name == name {
			return action, nil
		}
	}
	return Action{}, fmt.Errorf("%w: %s/%s", ErrUnknownAction, entity.Key, name)
}

// TableActions configures the action column of the list table.
func (entity Entity) TableActions() *table.Actions {
	capabilities := entity.Capabilities
	capabilities.Edit = entity.Editable()
	actions := &table.Actions{Capabilities: capabilities, IDKey: entity.IdentifierKey(), BasePath: entity.Route}
	for _, action := range entity.Actions {
		actions.Extra = append(actions.Extra, table.RowAction{Name: action.Name, Label: action.Label, Icon: action.Icon, Confirm: action.Confirm})
	}
	return actions
}

// Path returns the console path of one of the entity's pages.
func (entity Entity) Path(page string, identifier ...string) string {
	segments := append([]string{strings.TrimRight(entity.Route, "/"), page}, identifier...)
	return strings.Join(segments, "/")
}

// RegisterPath returns the console register page path.
func (entity Entity) RegisterPath() string {
	return entity.Path(pageRegister)
}

// DetailsPath returns the console details page path of one record.
func (entity Entity) DetailsPath(identifier string) string {
	return entity.Path(pageDetails, identifier)
}

// EditPath returns the console edit page path of one record.
func (entity Entity) EditPath(identifier string) string {
	return entity.Path(pageEdit, identifier)
}

// DeletePath returns the console delete confirmation path of one record.
func (entity Entity) DeletePath(identifier string) string {
	return entity.Path(pageDelete, identifier)
}

// Trail returns the breadcrumbs of the list page followed by leaves.
func (entity Entity) Trail(leaves ...Breadcrumb) []Breadcrumb {
	trail := make([]Breadcrumb, 0, len(entity.Parents)+1+len(leaves))
	trail = append(trail, entity.Parents...)
	trail = append(trail, Breadcrumb{Name: entity.Title, Route: entity.Route})
	return append(trail, leaves...)
}

// RegisterTrail returns the breadcrumbs of the register page.
func (entity Entity) RegisterTrail() []Breadcrumb {
	return entity.Trail(Breadcrumb{Name: crumbRegister, Route: entity.RegisterPath()})
}

// DetailsTrail returns the breadcrumbs of a details page.
func (entity Entity) DetailsTrail(identifier string) []Breadcrumb {
	return entity.Trail(Breadcrumb{Name: crumbDetails, Route: entity.DetailsPath(identifier)})
}

// EditTrail returns the breadcrumbs of an edit page.
func (entity Entity) EditTrail(identifier string) []Breadcrumb {
	return entity.Trail(Breadcrumb{Name: crumbEdit, Route: entity.EditPath(identifier)})
}

// DeleteTrail returns the breadcrumbs of a delete confirmation page.
func (entity Entity) DeleteTrail(identifier string) []Breadcrumb {
	return entity.Trail(Breadcrumb{Name: crumbDelete, Route: entity.DeletePath(identifier)})
}

// DetailRows returns the details page layout. Entities without an explicit layout show their
// register fields, passwords excluded.
func (entity Entity) DetailRows() []Detail {
	if len(entity.Details) > 0 {
		return entity.Details
	}
	details := make([]Detail, 0, len(entity.Fields)+1)
	details = append(details, Detail{Label: "ID", Key: entity.IdentifierKey()})
	for _, field := range entity.Fields {
		if field.Kind == form.KindPassword || field.Kind == form.KindFile {
			continue
		}
		details = append(details, Detail{Label: field.Label, Key: field.Name.Key(), Format: optionLabel(field.Options)})
	}
	return details
}

// Payload finalizes a submitted register or edit payload: defaults fill absent keys and nullable
// keys with an empty selection become null.
func (entity Entity) Payload(submitted map[string]any) map[string]any {
	payload := make(map[string]any, len(submitted)+len(entity.Defaults))
	for key, value := range submitted {
		payload[key] = value
	}
	for key, value := range entity.Defaults {
		if _, present := payload[key]; !present {
			payload[key] = value
		}
	}
	for _, key := range entity.Nullable {
		if text, isString := payload[key].(string); isString && text == "" {
			payload[key] = nil
		}
	}
	return payload
}

// Message returns the confirmation for a successful mutation, preferring the backend's own text.
func (entity Entity) Message(kind string, backendMessage string) string {
	if trimmed := strings.TrimSpace(backendMessage); trimmed != "" {
		return trimmed
	}
	switch kind {
	case pageRegister:
		if entity.Messages.Created != "" {
			return entity.Messages.Created
		}
		return defaultMessageCreated
	case pageEdit:
		if entity.Messages.Updated != "" {
			return entity.Messages.Updated
		}
		return defaultMessageUpdated
	default:
		if entity.Messages.Deleted != "" {
			return entity.Messages.Deleted
		}
		return defaultMessageDeleted
	}
}

// CreatedMessage returns the confirmation shown after a register.
func (entity Entity) CreatedMessage(backendMessage string) string {
	return entity.Message(pageRegister, backendMessage)
}

// UpdatedMessage returns the confirmation shown after an edit.
func (entity Entity) UpdatedMessage(backendMessage string) string {
	return entity.Message(pageEdit, backendMessage)
}

// DeletedMessage returns the confirmation shown after a delete.
func (entity Entity) DeletedMessage(backendMessage string) string {
	return entity.Message(pageDelete, backendMessage)
}

// Catalog indexes entities by key and by route.
type Catalog struct {
	entities []Entity
	byKey    map[string]int
	byRoute  map[string]int
}

// New builds a Catalog, rejecting duplicate keys or routes.
func New(entities ...Entity) (*Catalog, error) {
	catalog := &Catalog{byKey: make(map[string]int, len(entities)), byRoute: make(map[string]int, len(entities))}
	for index, entity := range entities {
		if _, duplicate := catalog.byKey[entity.Key]; duplicate {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, entity.Key)
		}
		if _, duplicate := catalog.byRoute[entity.Route]; duplicate {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, entity.Route)
		}
		catalog.byKey[entity.Key] = index
		catalog.byRoute[entity.Route] = index
		catalog.entities = append(catalog.entities, entity)
	}
	return catalog, nil
}

// Entities returns the registered entities in registration order.
func (catalog *Catalog) Entities() []Entity {
	return append([]Entity(nil), catalog.entities...)
}

// Lookup finds an entity by key.
func (catalog *Catalog) Lookup(key string) (Entity, error) {
	index, found := catalog.byKey[key]
	if !found {
		return Entity{}, fmt.Errorf("%w: %s", ErrUnknownEntity, key)
	}
	return catalog.entities[index], nil
}

// ByRoute finds an entity by its list route.
func (catalog *Catalog) ByRoute(route string) (Entity, bool) {
	index, found := catalog.byRoute[route]
	if !found {
		return Entity{}, false
	}
	return catalog.entities[index], true
}

// Sources lists every option source referenced by any entity form, sorted.
func (catalog *Catalog) Sources() []string {
	seen := make(map[string]struct{})
	for _, entity := range catalog.entities {
		fields := append(append([]form.FieldDescriptor(nil), entity.Fields...), entity.EditFields...)
		if entity.Items != nil {
			fields = append(fields, entity.Items.Fields...)
		}
		for _, source := range form.Sources(fields) {
			seen[source] = struct{}{}
		}
	}
	sources := make([]string, 0, len(seen))
	for source := range seen {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}
