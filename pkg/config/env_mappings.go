package config

import (
	"reflect"
	"sort"
	"sync"

	"github.com/edge-sentinel/agent/pkg/config/definition"
)

// EnvMapping represents a mapping between environment variable and config path
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
}

var (
	cachedMappings []EnvMapping
	mappingsOnce   sync.Once
)

// GenerateEnvMappings returns the env tags of Config merged with the env
// names declared in the field registry, sorted by variable name. Struct tags
// win when both name the same variable.
func GenerateEnvMappings() []EnvMapping {
	mappingsOnce.Do(func() {
		byVar := make(map[string]string)
		for env, path := range definition.CreateRegistry().GetEnvVarMapping() {
			byVar[env] = path
		}
		for _, m := range extractMappings(reflect.TypeOf(Config{}), "") {
			byVar[m.EnvVar] = m.ConfigPath
		}
		cachedMappings = make([]EnvMapping, 0, len(byVar))
		for env, path := range byVar {
			cachedMappings = append(cachedMappings, EnvMapping{EnvVar: env, ConfigPath: path})
		}
		sort.Slice(cachedMappings, func(i, j int) bool {
			return cachedMappings[i].EnvVar < cachedMappings[j].EnvVar
		})
	})
	return cachedMappings
}

// extractMappings walks koanf/env struct tags recursively.
func extractMappings(t reflect.Type, prefix string) []EnvMapping {
	var mappings []EnvMapping
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		koanfTag := field.Tag.Get("koanf")
		if !field.IsExported() || koanfTag == "" || koanfTag == "-" {
			continue
		}
		configPath := koanfTag
		if prefix != "" {
			configPath = prefix + "." + koanfTag
		}
		if envTag := field.Tag.Get("env"); envTag != "" && envTag != "-" {
			mappings = append(mappings, EnvMapping{EnvVar: envTag, ConfigPath: configPath})
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			mappings = append(mappings, extractMappings(field.Type, configPath)...)
		}
	}
	return mappings
}

// GenerateEnvToConfigMap generates a map from env var to config path
func GenerateEnvToConfigMap() map[string]string {
	mappings := GenerateEnvMappings()
	result := make(map[string]string, len(mappings))
	for _, m := range mappings {
		result[m.EnvVar] = m.ConfigPath
	}
	return result
}

// GetEnvVarForConfigPath returns the environment variable for a given config path
func GetEnvVarForConfigPath(configPath string) string {
	for _, m := range GenerateEnvMappings() {
		if m.ConfigPath == configPath {
			return m.EnvVar
		}
	}
	return ""
}
