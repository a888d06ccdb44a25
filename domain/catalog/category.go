package catalog

import "strings"

// Category entry sort-key layout. One METADATA row describes the
// category itself; each subcategory is a SUB#-prefixed row under the
// same partition key.
const (
	MetadataEntryKey  = "METADATA"
	SubcategoryPrefix = "SUB#"
)

// CategoryEntry is a unified row type representing either a category's
// metadata or one of its subcategories.
type CategoryEntry struct {
	CategoryKey  string        `json:"categoryKey" dynamodbav:"categoryKey"`
	EntryKey     string        `json:"entryKey" dynamodbav:"entryKey"`
	Translations LocalizedText `json:"translations" dynamodbav:"translations"`
}

// IsMetadata reports whether the entry describes the category itself.
func (e CategoryEntry) IsMetadata() bool {
	return e.EntryKey == MetadataEntryKey
}

// SubcategoryName returns the subcategory identifier for a SUB# row,
// or the empty string for a metadata row.
func (e CategoryEntry) SubcategoryName() string {
	if !strings.HasPrefix(e.EntryKey, SubcategoryPrefix) {
		return ""
	}
	return strings.TrimPrefix(e.EntryKey, SubcategoryPrefix)
}

// SubcategoryEntryKey builds the sort key for a subcategory row.
func SubcategoryEntryKey(name string) string {
	return SubcategoryPrefix + name
}
