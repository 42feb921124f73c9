package internal

import (
	"fmt"
	"strings"

	"github.com/deckarep/golang-set"
)

// TemplateParam is a placeholder key and the text that replaces it.
type TemplateParam struct {
	Key   string
	Value string
}

// TemplateParams are applied in slice order.
type TemplateParams []TemplateParam

// ParseParams parses KEY=VALUE pairs. Only the first "=" separates key from value.
func ParseParams(pairs []string) (TemplateParams, error) {
	params := make(TemplateParams, 0, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected KEY=VALUE", pair)
		}
		params = append(params, TemplateParam{Key: key, Value: value})
	}
	return params, nil
}

// UnsafeTemplate substitutes every literal occurrence of each key with its value.
//
// This is plain text replacement: values are not quoted or escaped, and a value
// that contains a later key will be substituted again. Only use it with trusted
// input.
func UnsafeTemplate(query string, params TemplateParams) string {
	for _, p := range params {
		if p.Key == "" {
			continue
		}
		query = strings.ReplaceAll(query, p.Key, p.Value)
	}
	return query
}

// unusedParams lists keys that never occur in the query text.
func unusedParams(query string, params TemplateParams) []string {
	seen := mapset.NewSet()
	unused := []string{}
	for _, p := range params {
		if seen.Contains(p.Key) {
			continue
		}
		seen.Add(p.Key)
		if !strings.Contains(query, p.Key) {
			unused = append(unused, p.Key)
		}
	}
	return unused
}
