// Package portfolio serves the static project and skill data rendered by the
// site.
package portfolio

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FilterAll     = "All"
	FilterWebApps = "Web Applications"
	FilterDesign  = "UI/UX & Graphic Design"
)

var (
	ErrUnknownFilter   = errors.New("unknown filter")
	ErrProjectNotFound = errors.New("project not found")
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Project struct {
	ID          int      `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Slug        string   `yaml:"slug" json:"slug"`
	Category    string   `yaml:"category" json:"category"`
	Group       string   `yaml:"-" json:"group"`
	Description string   `yaml:"description" json:"description"`
	Year        string   `yaml:"year" json:"year"`
	Role        string   `yaml:"role" json:"role"`
	Timeline    string   `yaml:"timeline" json:"timeline"`
	Featured    bool     `yaml:"featured" json:"featured"`
	Highlights  []string `yaml:"highlights" json:"highlights"`
	Tags        []string `yaml:"tags" json:"tags"`
}

type Skills struct {
	Frontend []string `yaml:"frontend" json:"frontend"`
	Backend  []string `yaml:"backend" json:"backend"`
	Design   []string `yaml:"design" json:"design"`
}

type Catalog struct {
	projects []Project
	bySlug   map[string]int
	skills   Skills
}

type catalogFile struct {
	Projects []Project `yaml:"projects"`
	Skills   Skills    `yaml:"skills"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	catalog := &Catalog{
		projects: make([]Project, 0, len(file.Projects)),
		bySlug:   make(map[string]int, len(file.Projects)),
		skills:   file.Skills,
	}
	for _, project := range file.Projects {
		if project.Slug == "" {
			return nil, fmt.Errorf("project %d has no slug", project.ID)
		}
		if _, exists := catalog.bySlug[project.Slug]; exists {
			return nil, fmt.Errorf("duplicate project slug %q", project.Slug)
		}
		project.Group = GroupOf(project.Category)
		catalog.bySlug[project.Slug] = len(catalog.projects)
		catalog.projects = append(catalog.projects, project)
	}
	return catalog, nil
}

// Filters lists the curated project filters in display order.
func Filters() []string {
	return []string{FilterAll, FilterWebApps, FilterDesign}
}

// GroupOf maps a free-form category onto one of the curated filter groups.
func GroupOf(category string) string {
	lower := strings.ToLower(category)
	if strings.Contains(lower, "ui/ux") || strings.Contains(lower, "graphic") {
		return FilterDesign
	}
	return FilterWebApps
}

// Projects returns the projects in the given group, or all of them for
// FilterAll and the empty filter. Matching is case-insensitive.
func (catalog *Catalog) Projects(filter string) ([]Project, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, FilterAll) {
		return append([]Project(nil), catalog.projects...), nil
	}

	var group string
	for _, candidate := range Filters()[1:] {
		if strings.EqualFold(candidate, filter) {
			group = candidate
		}
	}
	if group == "" {
		return nil, ErrUnknownFilter
	}

	result := make([]Project, 0, len(catalog.projects))
	for _, project := range catalog.projects {
		if project.Group == group {
			result = append(result, project)
		}
	}
	return result, nil
}

func (catalog *Catalog) Featured() []Project {
	result := make([]Project, 0)
	for _, project := range catalog.projects {
		if project.Featured {
			result = append(result, project)
		}
	}
	return result
}

func (catalog *Catalog) Project(slug string) (Project, error) {
	index, found := catalog.bySlug[strings.TrimSpace(slug)]
	if !found {
		return Project{}, ErrProjectNotFound
	}
	return catalog.projects[index], nil
}

func (catalog *Catalog) Skills() Skills {
	return catalog.skills
}
