// Package ports defines the interfaces between the HTTP layer and the
// data-access implementations. Both catalog collections are owned
// exclusively by these repositories; no other component mutates store
// state directly.
package ports

import (
	"context"
	"time"

	"catalogo-backend/domain/catalog"
)

// PageRequest is a forward-only pagination request. Cursor is the
// opaque token returned by a previous page.
type PageRequest struct {
	Limit  int
	Cursor string
}

// ProductPage is one page of products plus the continuation token.
type ProductPage struct {
	Items      []catalog.Product `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
	HasMore    bool              `json:"hasMore"`
}

// ProductRepository is the conditional data-access contract for the
// products collection.
type ProductRepository interface {
	// Create writes a new product on condition that no row carries its
	// code; a Conflict error surfaces when the condition fails.
	Create(ctx context.Context, product *catalog.Product) (*catalog.Product, error)

	// GetByID returns the product or a NotFound error.
	GetByID(ctx context.Context, productID string) (*catalog.Product, error)

	// GetByCode looks a product up through the code index; it returns
	// nil without error when no product carries the code.
	GetByCode(ctx context.Context, code string) (*catalog.Product, error)

	// Update applies a partial patch on condition that the row exists;
	// a NotFound error surfaces when the condition fails.
	Update(ctx context.Context, productID string, patch catalog.ProductUpdate) (*catalog.Product, error)

	// Delete removes the row on condition that it exists. It does not
	// cascade to stored images; that is the caller's responsibility.
	Delete(ctx context.Context, productID string) error

	List(ctx context.Context, page PageRequest) (*ProductPage, error)
	ListByCategory(ctx context.Context, category string, page PageRequest) (*ProductPage, error)
	ListByCategoryAndSubcategory(ctx context.Context, category, subcategory string, page PageRequest) (*ProductPage, error)
}

// CategoryRepository is the conditional data-access contract for the
// category-entry collection.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]catalog.LocalizedText, error)
	ListAllSubcategories(ctx context.Context) ([]catalog.LocalizedText, error)
	ListSubcategoriesOf(ctx context.Context, category string) ([]catalog.LocalizedText, error)

	// GetCategory returns the METADATA translations or NotFound.
	GetCategory(ctx context.Context, name string) (catalog.LocalizedText, error)

	// CreateCategory writes the METADATA row on condition of absence;
	// Conflict when the category already exists.
	CreateCategory(ctx context.Context, name string, translations catalog.LocalizedText) (*catalog.CategoryEntry, error)

	// UpdateCategory rewrites the METADATA translations on condition
	// of presence; NotFound otherwise.
	UpdateCategory(ctx context.Context, name string, translations catalog.LocalizedText) (*catalog.CategoryEntry, error)

	// UpsertSubcategory overwrites unconditionally: the key is
	// caller-chosen and idempotent admin edits are wanted.
	UpsertSubcategory(ctx context.Context, category, subcategory string, translations catalog.LocalizedText) (*catalog.CategoryEntry, error)

	// DeleteSubcategory removes one SUB# row on condition of presence.
	DeleteSubcategory(ctx context.Context, category, subcategory string) error

	// DeleteCategory enumerates every row under the category and
	// removes them as one bounded batch, returning the number of rows
	// deleted. A category with zero rows yields NotFound.
	DeleteCategory(ctx context.Context, name string) (int, error)
}

// PresignedUpload is a one-time upload grant for the object store.
type PresignedUpload struct {
	UploadURL string `json:"uploadUrl"`
	FileKey   string `json:"fileKey"`
	PublicURL string `json:"publicUrl"`
	ExpiresIn int    `json:"expiresIn"`
}

// ImageStore is the object-store contract for product images. Keys are
// partitioned under freshly generated unique names, so writers never
// collide.
type ImageStore interface {
	// Upload stores the bytes and returns the public URL.
	Upload(ctx context.Context, fileName, contentType string, body []byte, metadata map[string]string) (string, error)

	Delete(ctx context.Context, key string) error

	// DeleteMany removes keys best-effort: failures are logged per key
	// and never escalate.
	DeleteMany(ctx context.Context, keys []string)

	Exists(ctx context.Context, key string) (bool, error)

	PresignUpload(ctx context.Context, fileName, contentType string) (*PresignedUpload, error)
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)

	// KeyFromURL extracts the object key from a public URL, returning
	// the empty string when the URL is not recognized.
	KeyFromURL(url string) string
}
