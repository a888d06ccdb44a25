package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"catalogo-backend/application/ports"
	"catalogo-backend/domain/catalog"
	apperrors "catalogo-backend/pkg/errors"
)

type fakeProductRepo struct {
	products map[string]*catalog.Product

	createErr error
	updateErr error
	deleteErr error

	lastCategory    string
	lastSubcategory string
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[string]*catalog.Product{}}
}

func (f *fakeProductRepo) Create(ctx context.Context, product *catalog.Product) (*catalog.Product, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := *product
	p.ProductID = "fixed-id"
	p.Code = catalog.NormalizeCode(p.Code)
	f.products[p.ProductID] = &p
	return &p, nil
}

func (f *fakeProductRepo) GetByID(ctx context.Context, productID string) (*catalog.Product, error) {
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, apperrors.NewNotFoundError("product with ID " + productID)
}

func (f *fakeProductRepo) GetByCode(ctx context.Context, code string) (*catalog.Product, error) {
	for _, p := range f.products {
		if p.Code == catalog.NormalizeCode(code) {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProductRepo) Update(ctx context.Context, productID string, patch catalog.ProductUpdate) (*catalog.Product, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, apperrors.NewNotFoundError("product with ID " + productID)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	return p, nil
}

func (f *fakeProductRepo) Delete(ctx context.Context, productID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.products[productID]; !ok {
		return apperrors.NewNotFoundError("product with ID " + productID)
	}
	delete(f.products, productID)
	return nil
}

func (f *fakeProductRepo) List(ctx context.Context, page ports.PageRequest) (*ports.ProductPage, error) {
	items := make([]catalog.Product, 0, len(f.products))
	for _, p := range f.products {
		items = append(items, *p)
	}
	return &ports.ProductPage{Items: items}, nil
}

func (f *fakeProductRepo) ListByCategory(ctx context.Context, category string, page ports.PageRequest) (*ports.ProductPage, error) {
	f.lastCategory = category
	return &ports.ProductPage{Items: []catalog.Product{}}, nil
}

func (f *fakeProductRepo) ListByCategoryAndSubcategory(ctx context.Context, category, subcategory string, page ports.PageRequest) (*ports.ProductPage, error) {
	f.lastCategory = category
	f.lastSubcategory = subcategory
	return &ports.ProductPage{Items: []catalog.Product{}}, nil
}

type fakeCategoryRepo struct {
	categories map[string]catalog.LocalizedText
	deleteErr  error
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: map[string]catalog.LocalizedText{}}
}

func (f *fakeCategoryRepo) ListCategories(ctx context.Context) ([]catalog.LocalizedText, error) {
	out := []catalog.LocalizedText{}
	for _, t := range f.categories {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeCategoryRepo) ListAllSubcategories(ctx context.Context) ([]catalog.LocalizedText, error) {
	return []catalog.LocalizedText{}, nil
}

func (f *fakeCategoryRepo) ListSubcategoriesOf(ctx context.Context, category string) ([]catalog.LocalizedText, error) {
	return []catalog.LocalizedText{}, nil
}

func (f *fakeCategoryRepo) GetCategory(ctx context.Context, name string) (catalog.LocalizedText, error) {
	if t, ok := f.categories[name]; ok {
		return t, nil
	}
	return nil, apperrors.NewNotFoundError("category " + name)
}

func (f *fakeCategoryRepo) CreateCategory(ctx context.Context, name string, translations catalog.LocalizedText) (*catalog.CategoryEntry, error) {
	if _, ok := f.categories[name]; ok {
		return nil, apperrors.NewConflictError("category " + name + " already exists")
	}
	f.categories[name] = translations
	return &catalog.CategoryEntry{CategoryKey: name, EntryKey: catalog.MetadataEntryKey, Translations: translations}, nil
}

func (f *fakeCategoryRepo) UpdateCategory(ctx context.Context, name string, translations catalog.LocalizedText) (*catalog.CategoryEntry, error) {
	if _, ok := f.categories[name]; !ok {
		return nil, apperrors.NewNotFoundError("category " + name)
	}
	f.categories[name] = translations
	return &catalog.CategoryEntry{CategoryKey: name, EntryKey: catalog.MetadataEntryKey, Translations: translations}, nil
}

func (f *fakeCategoryRepo) UpsertSubcategory(ctx context.Context, category, subcategory string, translations catalog.LocalizedText) (*catalog.CategoryEntry, error) {
	return &catalog.CategoryEntry{CategoryKey: category, EntryKey: catalog.SubcategoryEntryKey(subcategory), Translations: translations}, nil
}

func (f *fakeCategoryRepo) DeleteSubcategory(ctx context.Context, category, subcategory string) error {
	return nil
}

func (f *fakeCategoryRepo) DeleteCategory(ctx context.Context, name string) (int, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	if _, ok := f.categories[name]; !ok {
		return 0, apperrors.NewNotFoundError("category " + name)
	}
	delete(f.categories, name)
	return 1, nil
}

type fakeImageStore struct {
	mu      sync.Mutex
	deleted []string

	uploadErr  error
	presignErr error
}

func (f *fakeImageStore) Upload(ctx context.Context, fileName, contentType string, body []byte, metadata map[string]string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if !catalog.IsAllowedImageType(contentType) {
		return "", apperrors.NewValidationError("unsupported image type " + contentType)
	}
	return "https://bucket.s3.eu-south-1.amazonaws.com/products/" + fileName, nil
}

func (f *fakeImageStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeImageStore) DeleteMany(ctx context.Context, keys []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, keys...)
}

func (f *fakeImageStore) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

func (f *fakeImageStore) waitForDeletes(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(f.deletedKeys()) >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func (f *fakeImageStore) Exists(ctx context.Context, key string) (bool, error) {
	return true, nil
}

func (f *fakeImageStore) PresignUpload(ctx context.Context, fileName, contentType string) (*ports.PresignedUpload, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	if !catalog.IsAllowedImageType(contentType) {
		return nil, apperrors.NewValidationError("unsupported image type " + contentType)
	}
	return &ports.PresignedUpload{
		UploadURL: "https://signed.example/put",
		FileKey:   "products/generated.jpg",
		PublicURL: "https://bucket.s3.eu-south-1.amazonaws.com/products/generated.jpg",
		ExpiresIn: 300,
	}, nil
}

func (f *fakeImageStore) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/get", nil
}

func (f *fakeImageStore) KeyFromURL(url string) string {
	const marker = "amazonaws.com/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return ""
	}
	return url[idx+len(marker):]
}
