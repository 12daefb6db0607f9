package table

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

const (
	tableTemplateName  = "dynamic_table"
	defaultTableID     = "dynamic-table"
	defaultIDKey       = "id"
	errorMessageRender = "table: render template"

	ActionView   = "details"
	ActionEdit   = "edit"
	ActionDelete = "delete"

	labelView   = "Ver"
	labelEdit   = "Editar"
	labelDelete = "Eliminar"
	iconView    = "bi-eye"
	iconEdit    = "bi-pencil"
	iconDelete  = "bi-trash"

	methodGet  = "get"
	methodPost = "post"
)

//go:embed templates/table.tmpl
var tableTemplateHTML string

var tableTemplate = template.Must(template.New(tableTemplateName).Parse(tableTemplateHTML))

// Capabilities toggles the standard per-row actions.
type Capabilities struct {
	View   bool
	Edit   bool
	Delete bool
}

// RowAction is an entity-specific operation posted for a row, such as running a job.
type RowAction struct {
	Name    string
	Label   string
	Icon    string
	Confirm string
}

// Actions configures the action column.
type Actions struct {
	Capabilities
	Extra    []RowAction
	IDKey    string
	BasePath string
	// Link overrides the default {BasePath}/{action}/{id} targets.
	Link func(action string, identifier string) string
}

func (actions *Actions) enabled() bool {
	return actions != nil && (actions.View || actions.Edit || actions.Delete || len(actions.Extra) > 0)
}

func (actions *Actions) link(action string, identifier string) string {
	if actions.Link != nil {
		return actions.Link(action, identifier)
	}
	escaped := url.PathEscape(identifier)
	base := strings.TrimRight(actions.BasePath, "/")
	switch action {
	case ActionView, ActionEdit, ActionDelete:
		return base + "/" + action + "/" + escaped
	default:
		return base + "/actions/" + url.PathEscape(action) + "/" + escaped
	}
}

// Options controls paging, status display and row actions.
type Options struct {
	ID       string
	PageSize int
	Loading  bool
	Error    string
	Actions  *Actions
	// LinkPath is the page path that header and pagination links point to.
	LinkPath string
	// LinkQuery is kept on every link so other grids on the page hold their position.
	LinkQuery url.Values
	// EmptyText replaces the grid when there are no rows.
	EmptyText string
}

// HeaderView is a rendered column header.
type HeaderView struct {
	Label     string
	Sortable  bool
	Direction Direction
	Href      string
}

// ActionLink is a rendered row action.
type ActionLink struct {
	Label   string
	Icon    string
	Href    string
	Method  string
	Confirm string
}

// RowView is a rendered row.
type RowView struct {
	ID      string
	Cells   []string
	Actions []ActionLink
}

// PageLink is a numbered pagination control.
type PageLink struct {
	Number  int
	Href    string
	Current bool
}

// Model is the fully computed grid ready for rendering.
type Model struct {
	ID           string
	Headers      []HeaderView
	Rows         []RowView
	Total        int
	PageIndex    int
	PageSize     int
	PageCount    int
	CanPrevious  bool
	CanNext      bool
	Pages        []PageLink
	FirstHref    string
	PreviousHref string
	NextHref     string
	LastHref     string
	Loading      bool
	Error        string
	HasActions   bool
	EmptyText    string
}

// View sorts and slices data according to state and computes every link. It has no side effects.
func View(columns []Column, data []Row, state State, options Options) Model {
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	model := Model{
		ID:         options.ID,
		Total:      len(data),
		PageSize:   pageSize,
		PageCount:  PageCount(len(data), pageSize),
		Loading:    options.Loading,
		Error:      options.Error,
		HasActions: options.Actions.enabled(),
		EmptyText:  options.EmptyText,
	}
	if model.ID == "" {
		model.ID = defaultTableID
	}

	pageIndex := state.PageIndex
	if pageIndex >= model.PageCount {
		pageIndex = model.PageCount - 1
	}
	if pageIndex < 0 {
		pageIndex = 0
	}
	state.PageIndex = pageIndex
	model.PageIndex = pageIndex
	model.CanPrevious = pageIndex > 0
	model.CanNext = pageIndex+1 < model.PageCount

	for _, column := range columns {
		header := HeaderView{Label: column.Header, Sortable: !column.NoSort && column.AccessorKey != ""}
		if column.AccessorKey == state.SortKey {
			header.Direction = state.Direction
		}
		if header.Sortable {
			header.Href = href(options, state.Toggle(column.AccessorKey))
		}
		model.Headers = append(model.Headers, header)
	}

	if model.PageCount > 0 {
		model.FirstHref = href(options, state.WithPage(0))
		model.PreviousHref = href(options, state.WithPage(max(pageIndex-1, 0)))
		model.NextHref = href(options, state.WithPage(min(pageIndex+1, model.PageCount-1)))
		model.LastHref = href(options, state.WithPage(model.PageCount-1))
		for index := 0; index < model.PageCount; index++ {
			model.Pages = append(model.Pages, PageLink{Number: index + 1, Href: href(options, state.WithPage(index)), Current: index == pageIndex})
		}
	}

	if options.Loading {
		return model
	}

	sorted := Sort(data, state)
	start := pageIndex * pageSize
	end := min(start+pageSize, len(sorted))
	for _, row := range sorted[min(start, len(sorted)):end] {
		model.Rows = append(model.Rows, rowView(columns, row, options.Actions))
	}
	return model
}

func rowView(columns []Column, row Row, actions *Actions) RowView {
	view := RowView{Cells: make([]string, 0, len(columns))}
	for _, column := range columns {
		value := Value(row, column.AccessorKey)
		if column.Cell != nil {
			view.Cells = append(view.Cells, column.Cell(value, row))
			continue
		}
		view.Cells = append(view.Cells, FormatValue(value))
	}
	if !actions.enabled() {
		return view
	}
	idKey := actions.IDKey
	if idKey == "" {
		idKey = defaultIDKey
	}
	view.ID = FormatValue(Value(row, idKey))
	if view.ID == "" {
		return view
	}
	if actions.View {
		view.Actions = append(view.Actions, ActionLink{Label: labelView, Icon: iconView, Href: actions.link(ActionView, view.ID), Method: methodGet})
	}
	if actions.Edit {
		view.Actions = append(view.Actions, ActionLink{Label: labelEdit, Icon: iconEdit, Href: actions.link(ActionEdit, view.ID), Method: methodGet})
	}
	for _, extra := range actions.Extra {
		view.Actions = append(view.Actions, ActionLink{Label: extra.Label, Icon: extra.Icon, Href: actions.link(extra.Name, view.ID), Method: methodPost, Confirm: extra.Confirm})
	}
	if actions.Delete {
		view.Actions = append(view.Actions, ActionLink{Label: labelDelete, Icon: iconDelete, Href: actions.link(ActionDelete, view.ID), Method: methodGet})
	}
	return view
}

func href(options Options, state State) string {
	path := options.LinkPath
	encoded := state.Merge(options.LinkQuery).Encode()
	if encoded == "" {
		if path == "" {
			return "?"
		}
		return path
	}
	return path + "?" + encoded
}

// Render produces the grid markup.
func Render(model Model) (template.HTML, error) {
	var buffer bytes.Buffer
	if executeErr := tableTemplate.Execute(&buffer, model); executeErr != nil {
		return "", fmt.Errorf("%s: %w", errorMessageRender, executeErr)
	}
	return template.HTML(buffer.String()), nil
}
