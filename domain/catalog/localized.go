package catalog

import (
	"encoding/json"
	"fmt"
)

// Languages is the fixed set of supported language codes.
var Languages = []string{"it", "en", "fr", "es", "de"}

// DefaultLanguage is the primary language used for the denormalized
// flat index fields.
const DefaultLanguage = "it"

// LocalizedText maps a language code to a localized string. The
// mapping may be partially filled.
type LocalizedText map[string]string

// UnmarshalJSON accepts both the canonical object shape and the legacy
// plain-string shape. A bare string is normalized into the default
// language so the legacy shape is never persisted.
func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*t = LocalizedText{DefaultLanguage: asString}
		return nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(data, &asMap); err != nil {
		return fmt.Errorf("localized text must be a string or an object of strings: %w", err)
	}

	normalized := make(LocalizedText, len(asMap))
	for lang, value := range asMap {
		if !IsSupportedLanguage(lang) {
			return fmt.Errorf("unsupported language code %q", lang)
		}
		normalized[lang] = value
	}
	*t = normalized
	return nil
}

// Get returns the value for lang, falling back to the default language.
func (t LocalizedText) Get(lang string) string {
	if v, ok := t[lang]; ok && v != "" {
		return v
	}
	return t[DefaultLanguage]
}

// Primary returns the default-language value.
func (t LocalizedText) Primary() string {
	return t[DefaultLanguage]
}

// IsEmpty reports whether no language carries a value.
func (t LocalizedText) IsEmpty() bool {
	for _, v := range t {
		if v != "" {
			return false
		}
	}
	return true
}

// IsSupportedLanguage reports whether lang is one of the fixed codes.
func IsSupportedLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}
