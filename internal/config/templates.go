package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lei/actions-gateway/internal/models"
)

// TemplateTable is the template source's rule table: which templates exist,
// which changed-file patterns vote for them, and how caller-supplied change
// types map onto them. The gateway consumes identities and rules only; the
// template bodies stay with their source.
type TemplateTable struct {
	Templates   []models.Template     `yaml:"templates"`
	Rules       []models.TemplateRule `yaml:"rules"`
	TypeAliases map[string]string     `yaml:"type_aliases"`
	Fallback    string                `yaml:"fallback"`
}

// LoadTemplateTable reads a template table from a yaml file. An empty path
// returns the built-in defaults.
func LoadTemplateTable(path string) (*TemplateTable, error) {
	if path == "" {
		return DefaultTemplateTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template table: %w", err)
	}

	var table TemplateTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse template table: %w", err)
	}

	if table.Fallback == "" {
		table.Fallback = "feature.md"
	}
	for i, rule := range table.Rules {
		if rule.Pattern == "" {
			return nil, fmt.Errorf("template rule at index %d missing pattern", i)
		}
		if rule.Template == "" {
			return nil, fmt.Errorf("template rule at index %d missing template", i)
		}
		if rule.Priority == 0 {
			table.Rules[i].Priority = 1
		}
	}
	return &table, nil
}

// DefaultTemplateTable mirrors the stock template set shipped with the PR
// agent: one template per change category plus the alias vocabulary callers
// use for change types.
func DefaultTemplateTable() *TemplateTable {
	return &TemplateTable{
		Templates: []models.Template{
			{Filename: "bug.md", Label: "Bug Fix"},
			{Filename: "feature.md", Label: "Feature"},
			{Filename: "docs.md", Label: "Documentation"},
			{Filename: "refactor.md", Label: "Refactor"},
			{Filename: "test.md", Label: "Test"},
			{Filename: "performance.md", Label: "Performance"},
			{Filename: "security.md", Label: "Security"},
		},
		Rules: []models.TemplateRule{
			{Pattern: "docs/", Template: "docs.md", Priority: 2},
			{Pattern: "*.md", Template: "docs.md", Priority: 1},
			{Pattern: "test/", Template: "test.md", Priority: 2},
			{Pattern: "tests/", Template: "test.md", Priority: 2},
			{Pattern: "*_test.go", Template: "test.md", Priority: 2},
			{Pattern: "benchmarks/", Template: "performance.md", Priority: 2},
			{Pattern: "security/", Template: "security.md", Priority: 2},
		},
		TypeAliases: map[string]string{
			"bug":           "bug.md",
			"fix":           "bug.md",
			"feature":       "feature.md",
			"enhancement":   "feature.md",
			"docs":          "docs.md",
			"documentation": "docs.md",
			"refactor":      "refactor.md",
			"cleanup":       "refactor.md",
			"test":          "test.md",
			"testing":       "test.md",
			"performance":   "performance.md",
			"optimization":  "performance.md",
			"security":      "security.md",
		},
		Fallback: "feature.md",
	}
}
