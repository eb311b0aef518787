package definition

import (
	"reflect"
	"sort"
)

// FieldDef defines a configuration field with its metadata
type FieldDef struct {
	Path      string       // Config path like "twin.document_path"
	Default   any          // Default value
	CLIFlag   string       // CLI flag name like "twin-document"
	Shorthand string       // Single character shorthand like "f"
	EnvVar    string       // Environment variable name like "TWIN_DOCUMENT_PATH"
	Type      reflect.Type // Field type for validation
	Help      string       // Help text for CLI
}

// Registry holds all configuration field definitions
type Registry struct {
	fields map[string]FieldDef
}

// NewRegistry creates a new field registry
func NewRegistry() *Registry {
	return &Registry{
		fields: make(map[string]FieldDef),
	}
}

// Register adds a field definition to the registry
func (r *Registry) Register(field *FieldDef) {
	r.fields[field.Path] = *field
}

// GetField returns a field definition by path
func (r *Registry) GetField(path string) (FieldDef, bool) {
	field, exists := r.fields[path]
	return field, exists
}

// GetDefault returns the default value for a field path
func (r *Registry) GetDefault(path string) any {
	if field, exists := r.fields[path]; exists {
		return field.Default
	}
	return nil
}

// Paths returns every registered path in lexical order.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.fields))
	for p := range r.fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// GetCLIFlagMapping returns a map of CLI flag names to config paths
func (r *Registry) GetCLIFlagMapping() map[string]string {
	mapping := make(map[string]string)
	for path, field := range r.fields {
		if field.CLIFlag != "" {
			mapping[field.CLIFlag] = path
		}
	}
	return mapping
}

// GetEnvVarMapping returns a map of environment variable names to config paths
func (r *Registry) GetEnvVarMapping() map[string]string {
	mapping := make(map[string]string)
	for path, field := range r.fields {
		if field.EnvVar != "" {
			mapping[field.EnvVar] = path
		}
	}
	return mapping
}
