// Package config provides configuration loading, validation, and defaults
// for the contact relay. It reads an optional YAML file and environment
// variables through viper and validates the result with validator.
package config

import "strings"

// Render replaces {name} placeholders in a message template.
func Render(template string, values map[string]string) string {
	if len(values) == 0 {
		return template
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
