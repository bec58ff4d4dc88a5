package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// StringArray maps a Postgres text[] column onto a Go slice.
type StringArray []string

func (a *StringArray) Scan(src any) error {
	if src == nil {
		*a = StringArray{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return a.parseFromString(v)
	case []byte:
		return a.parseFromString(string(v))
	default:
		return fmt.Errorf("StringArray: unsupported Scan type %T", src)
	}
}

func (a StringArray) Value() (driver.Value, error) {
	// Postgres array literal: {a,b}
	if len(a) == 0 {
		return "{}", nil
	}
	parts := make([]string, 0, len(a))
	for _, s := range a {
		escaped := strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`)
		parts = append(parts, `"`+escaped+`"`)
	}
	return "{" + strings.Join(parts, ",") + "}", nil
}

// Contains reports whether the array holds the given value.
func (a StringArray) Contains(value string) bool {
	for _, s := range a {
		if s == value {
			return true
		}
	}
	return false
}

func (a *StringArray) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	if s == "{}" || s == "" {
		*a = StringArray{}
		return nil
	}
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if strings.TrimSpace(s) == "" {
		*a = StringArray{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, strings.Trim(strings.TrimSpace(r), `"`))
	}
	*a = StringArray(out)
	return nil
}
