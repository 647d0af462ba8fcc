package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	return path
}

func TestLoadTemplateTable_EmptyPathUsesDefaults(t *testing.T) {
	table, err := LoadTemplateTable("")
	if err != nil {
		t.Fatalf("LoadTemplateTable() error = %v", err)
	}
	if len(table.Templates) != 7 {
		t.Errorf("Templates = %d, want 7", len(table.Templates))
	}
	if table.Fallback != "feature.md" {
		t.Errorf("Fallback = %q, want feature.md", table.Fallback)
	}
}

func TestLoadTemplateTable_File(t *testing.T) {
	path := writeTable(t, `
templates:
  - filename: api.md
    label: API Change
rules:
  - pattern: api/
    template: api.md
    priority: 3
  - pattern: "*.proto"
    template: api.md
type_aliases:
  api: api.md
fallback: api.md
`)

	table, err := LoadTemplateTable(path)
	if err != nil {
		t.Fatalf("LoadTemplateTable() error = %v", err)
	}
	if len(table.Templates) != 1 || table.Templates[0].Label != "API Change" {
		t.Errorf("Templates = %v", table.Templates)
	}
	if table.Rules[0].Priority != 3 {
		t.Errorf("Priority = %d, want 3", table.Rules[0].Priority)
	}
	// Unset priority defaults to 1.
	if table.Rules[1].Priority != 1 {
		t.Errorf("default Priority = %d, want 1", table.Rules[1].Priority)
	}
	if table.TypeAliases["api"] != "api.md" {
		t.Errorf("TypeAliases = %v", table.TypeAliases)
	}
}

func TestLoadTemplateTable_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"missing pattern",
			"rules:\n  - template: api.md\n",
		},
		{
			"missing template",
			"rules:\n  - pattern: api/\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTable(t, tt.content)
			if _, err := LoadTemplateTable(path); err == nil {
				t.Error("LoadTemplateTable() error = nil, want validation error")
			}
		})
	}
}

func TestDefaultTemplateTable_AliasesResolve(t *testing.T) {
	table := DefaultTemplateTable()

	known := make(map[string]bool)
	for _, tmpl := range table.Templates {
		known[tmpl.Filename] = true
	}
	for alias, target := range table.TypeAliases {
		if !known[target] {
			t.Errorf("alias %q points at unknown template %q", alias, target)
		}
	}
	for _, rule := range table.Rules {
		if !known[rule.Template] {
			t.Errorf("rule %q points at unknown template %q", rule.Pattern, rule.Template)
		}
	}
	if !known[table.Fallback] {
		t.Errorf("fallback %q is not a known template", table.Fallback)
	}
}
