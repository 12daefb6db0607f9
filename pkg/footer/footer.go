package footer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const (
	// DefaultOwner is the legal owner named in the copyright line.
	DefaultOwner = "Grupo Susess"
	// DefaultNotice follows the owner in the copyright line.
	DefaultNotice = "Todos los derechos reservados."

	defaultElementID  = "console-footer"
	defaultBaseClass  = "console-footer border-top mt-auto py-3"
	defaultInnerClass = "container-fluid d-flex flex-wrap justify-content-between align-items-center gap-2"
	errorMessageYear  = "footer: year must be positive"
)

// Link describes a secondary link displayed next to the copyright line.
type Link struct {
	Label string
	URL   string
}

// Config captures the markup and style hooks required to render the footer.
type Config struct {
	ElementID  string
	BaseClass  string
	InnerClass string
	Year       int
	Owner      string
	Notice     string
	Links      []Link
}

type footerView struct {
	ElementID  string
	BaseClass  string
	InnerClass string
	Copyright  string
	Links      []Link
}

var (
	footerTemplate = template.Must(template.New("footer").Parse(`<footer id="{{.ElementID}}" class="{{.BaseClass}}">
  <div class="{{.InnerClass}}">
    <span class="text-body-secondary small">{{.Copyright}}</span>
    {{- if .Links}}
    <ul class="nav small">
      {{- range .Links}}
      <li class="nav-item"><a class="nav-link px-2 text-body-secondary" href="{{.URL}}">{{.Label}}</a></li>
      {{- end}}
    </ul>
    {{- end}}
  </div>
</footer>`))
)

// NewConfig returns the console footer for the current year.
func NewConfig(now time.Time) Config {
	return Config{Year: now.Year(), Owner: DefaultOwner, Notice: DefaultNotice}
}

// Copyright returns the "© {year} {owner}. {notice}" line.
func (config Config) Copyright() string {
	owner := strings.TrimSpace(config.Owner)
	if owner == "" {
		owner = DefaultOwner
	}
	notice := strings.TrimSpace(config.Notice)
	if notice == "" {
		notice = DefaultNotice
	}
	return fmt.Sprintf("© %d %s. %s", config.Year, owner, notice)
}

// Render returns the footer HTML for the provided configuration.
func Render(config Config) (template.HTML, error) {
	if config.Year <= 0 {
		return "", fmt.Errorf("%s: %d", errorMessageYear, config.Year)
	}
	view := footerView{
		ElementID:  config.ElementID,
		BaseClass:  config.BaseClass,
		InnerClass: config.InnerClass,
		Copyright:  config.Copyright(),
		Links:      config.Links,
	}
	if view.ElementID == "" {
		view.ElementID = defaultElementID
	}
	if view.BaseClass == "" {
		view.BaseClass = defaultBaseClass
	}
	if view.InnerClass == "" {
		view.InnerClass = defaultInnerClass
	}
	var buffer bytes.Buffer
	if err := footerTemplate.Execute(&buffer, view); err != nil {
		return "", err
	}
	return template.HTML(buffer.String()), nil
}
