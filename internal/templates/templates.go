// Package templates holds the built-in port email templates and the
// placeholder substitution applied when a job is created.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	PlaceholderShipName = "{ship_name}"
	PlaceholderPort     = "{port}"
)

var ErrInvalidTemplates = errors.New("templates: invalid template document")

//go:embed defaults.yaml
var defaultsYAML []byte

// Template is a reusable subject and body pair for one kind of port call.
type Template struct {
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
	Default  bool   `yaml:"default" json:"is_default"`
	Subject  string `yaml:"subject" json:"subject"`
	Body     string `yaml:"body" json:"body"`
}

// Render returns the template with both placeholders substituted.
func (t Template) Render(shipName, port string) Template {
	t.Subject = Render(t.Subject, shipName, port)
	t.Body = Render(t.Body, shipName, port)
	return t
}

// Render replaces every {ship_name} and {port} in s. An empty port leaves
// the {port} placeholder in place.
func Render(s, shipName, port string) string {
	pairs := []string{PlaceholderShipName, shipName}
	if port != "" {
		pairs = append(pairs, PlaceholderPort, port)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Parse decodes a YAML list of templates. Every template needs a name and a subject.
func Parse(data []byte) ([]Template, error) {
	var list []Template
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, errors.Join(ErrInvalidTemplates, err)
	}
	for i, t := range list {
		if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Subject) == "" {
			return nil, fmt.Errorf("%w: entry %d needs a name and a subject", ErrInvalidTemplates, i)
		}
		list[i].Body = strings.TrimRight(t.Body, "\n")
	}
	return list, nil
}

// Defaults returns the embedded template set.
func Defaults() []Template {
	list, err := Parse(defaultsYAML)
	if err != nil {
		panic(err)
	}
	return list
}
