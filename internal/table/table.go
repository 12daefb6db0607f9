// Package table turns column definitions and backend records into a sortable, paginated grid.
package table

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is the sort direction of a column.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"

	// DefaultPageSize is used when Options.PageSize is not positive.
	DefaultPageSize = 10

	queryKeySort     = "sort"
	queryKeyDir      = "dir"
	queryKeyPage     = "page"
	namespaceJoiner  = "-"
	accessorSplitter = "."
	cellTrue         = "Sí"
	cellFalse        = "No"
)

// Next cycles none, asc, desc and back to none.
func (direction Direction) Next() Direction {
	switch direction {
	case DirectionNone:
		return DirectionAsc
	case DirectionAsc:
		return DirectionDesc
	default:
		return DirectionNone
	}
}

// Row is an opaque backend record.
type Row map[string]any

// Column describes one grid column. AccessorKey is a dot-path into the row.
type Column struct {
	Header      string
	AccessorKey string
	// Cell formats the accessed value. Nil falls back to a plain rendering.
	Cell func(value any, row Row) string
	// NoSort disables header sorting for the column.
	NoSort bool
}

// Value reads a dot-path from row, descending into nested objects.
func Value(row Row, accessorKey string) any {
	var current any = map[string]any(row)
	for _, segment := range strings.Split(accessorKey, accessorSplitter) {
		container, isContainer := current.(map[string]any)
		if !isContainer {
			return nil
		}
		current = container[segment]
	}
	return current
}

// State is the sort and page position of a grid, carried in the query string. Grids sharing a
// page keep their parameters apart under a Namespace.
type State struct {
	SortKey   string
	Direction Direction
	PageIndex int
	Namespace string
}

// StateFromQuery reads sort, dir and the 1-based page parameter.
func StateFromQuery(query url.Values) State {
	return NamespacedState(query, "")
}

// NamespacedState reads the parameters of the grid namespace, e.g. "readings-sort".
func NamespacedState(query url.Values, namespace string) State {
	state := State{Namespace: namespace}
	state.SortKey = strings.TrimSpace(query.Get(state.key(queryKeySort)))
	switch Direction(query.Get(state.key(queryKeyDir))) {
	case DirectionAsc:
		state.Direction = DirectionAsc
	case DirectionDesc:
		state.Direction = DirectionDesc
	}
	if state.SortKey == "" || state.Direction == DirectionNone {
		state.SortKey = ""
		state.Direction = DirectionNone
	}
	if page, parseErr := strconv.Atoi(query.Get(state.key(queryKeyPage))); parseErr == nil && page > 1 {
		state.PageIndex = page - 1
	}
	return state
}

func (state State) key(name string) string {
	if state.Namespace == "" {
		return name
	}
	return state.Namespace + namespaceJoiner + name
}

// Query encodes the state, omitting defaults.
func (state State) Query() url.Values {
	query := url.Values{}
	if state.SortKey != "" && state.Direction != DirectionNone {
		query.Set(state.key(queryKeySort), state.SortKey)
		query.Set(state.key(queryKeyDir), string(state.Direction))
	}
	if state.PageIndex > 0 {
		query.Set(state.key(queryKeyPage), strconv.Itoa(state.PageIndex+1))
	}
	return query
}

// Merge overlays the state onto query, replacing only the state's own parameters.
func (state State) Merge(query url.Values) url.Values {
	merged := url.Values{}
	for key, values := range query {
		merged[key] = append([]string(nil), values...)
	}
	for _, name := range []string{queryKeySort, queryKeyDir, queryKeyPage} {
		merged.Del(state.key(name))
	}
	for key, values := range state.Query() {
		merged[key] = values
	}
	return merged
}

// Toggle applies a header click on key. Clicking the sorted column advances its direction;
// any other column starts ascending. The page resets to the first.
func (state State) Toggle(key string) State {
	if key == state.SortKey {
		next := state.Direction.Next()
		if next == DirectionNone {
			return State{Namespace: state.Namespace}
		}
		return State{SortKey: key, Direction: next, Namespace: state.Namespace}
	}
	return State{SortKey: key, Direction: DirectionAsc, Namespace: state.Namespace}
}

// WithPage returns the state positioned on pageIndex.
func (state State) WithPage(pageIndex int) State {
	state.PageIndex = pageIndex
	return state
}

// Sort returns a stably sorted copy of rows by the state's column. Numbers compare numerically,
// booleans false before true, strings in locale order ignoring case; nil values sort last.
func Sort(rows []Row, state State) []Row {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	if state.SortKey == "" || state.Direction == DirectionNone {
		return sorted
	}
	collator := collate.New(language.Spanish, collate.IgnoreCase, collate.Numeric)
	descending := state.Direction == DirectionDesc
	sort.SliceStable(sorted, func(left int, right int) bool {
		leftValue := Value(sorted[left], state.SortKey)
		rightValue := Value(sorted[right], state.SortKey)
		if leftValue == nil || rightValue == nil {
			return leftValue != nil && rightValue == nil
		}
		comparison := compare(collator, leftValue, rightValue)
		if descending {
			return comparison > 0
		}
		return comparison < 0
	})
	return sorted
}

// PageCount is ceil(total/pageSize), zero for an empty data set.
func PageCount(total int, pageSize int) int {
	if total <= 0 {
		return 0
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

func compare(collator *collate.Collator, left any, right any) int {
	if leftNumber, leftIsNumber := numeric(left); leftIsNumber {
		if rightNumber, rightIsNumber := numeric(right); rightIsNumber {
			switch {
			case leftNumber < rightNumber:
				return -1
			case leftNumber > rightNumber:
				return 1
			default:
				return 0
			}
		}
	}
	if leftBool, leftIsBool := left.(bool); leftIsBool {
		if rightBool, rightIsBool := right.(bool); rightIsBool {
			switch {
			case leftBool == rightBool:
				return 0
			case !leftBool:
				return -1
			default:
				return 1
			}
		}
	}
	return collator.CompareString(FormatValue(left), FormatValue(right))
}

func numeric(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		parsed, parseErr := typed.Float64()
		return parsed, parseErr == nil
	default:
		return 0, false
	}
}

// FormatValue renders a cell value without a custom formatter.
func FormatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		if typed {
			return cellTrue
		}
		return cellFalse
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	case map[string]any, []any:
		encoded, encodeErr := json.Marshal(typed)
		if encodeErr != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	default:
		return fmt.Sprint(typed)
	}
}
