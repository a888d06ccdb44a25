// Package catalog holds the product catalog entities and the
// invariants they carry between the HTTP layer and the stores.
package catalog

import (
	"strings"
)

// PriceUnits are the accepted price denominations.
var PriceUnits = []string{"€/PZ", "€/KG"}

// PackagingTypes are the accepted packaging formats.
var PackagingTypes = []string{
	"Barattolo 1kg",
	"BigBag 600kg",
	"Flacone 750g",
	"Sacco 10kg",
	"Sacco 20kg",
	"Secchio 200tabs",
	"Secchio 3.6kg",
	"Secchio 4kg",
	"Secchio 5kg",
	"Secchio 6kg",
	"Secchio 8kg",
	"Secchio 9kg",
	"Secchio 10kg",
	"Astuccio 100g",
	"Astuccio 700g",
	"Astuccio 2400g",
	"Astuccio 900g",
	"Astuccio 200g",
	"Flacone 500ml",
	"Flacone Trigger 750ml",
	"Tanica 1000l",
	"Flacone 5l",
	"Fustone 5.6kg",
	"Cartone 400tabs",
}

// Image constraints.
const (
	MaxImagesPerProduct = 10
	MaxImageSizeBytes   = 5 * 1024 * 1024
)

// AllowedImageTypes are the accepted image content types.
var AllowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

// Product is a catalog product record.
//
// CategoryFlat and SubcategoryFlat are denormalized copies of the
// default-language values, kept solely because the store's index key
// extraction cannot traverse into the localized objects.
type Product struct {
	ProductID       string        `json:"productId" dynamodbav:"productId"`
	Code            string        `json:"code" dynamodbav:"code"`
	Name            LocalizedText `json:"name" dynamodbav:"name"`
	Description     LocalizedText `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Category        LocalizedText `json:"category" dynamodbav:"category"`
	Subcategory     LocalizedText `json:"subcategory" dynamodbav:"subcategory"`
	CategoryFlat    string        `json:"categoryFlat" dynamodbav:"categoryFlat"`
	SubcategoryFlat string        `json:"subcategoryFlat" dynamodbav:"subcategoryFlat"`
	Price           float64       `json:"price" dynamodbav:"price"`
	PriceUnit       string        `json:"priceUnit" dynamodbav:"priceUnit"`
	PackagingType   string        `json:"packagingType" dynamodbav:"packagingType"`
	UnitsPerBox     *int          `json:"unitsPerBox,omitempty" dynamodbav:"unitsPerBox,omitempty"`
	BoxesPerPallet  *int          `json:"boxesPerPallet,omitempty" dynamodbav:"boxesPerPallet,omitempty"`
	UnitsPerPallet  *int          `json:"unitsPerPallet,omitempty" dynamodbav:"unitsPerPallet,omitempty"`
	Images          []string      `json:"images,omitempty" dynamodbav:"images,omitempty"`
	CreatedAt       string        `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt       string        `json:"updatedAt" dynamodbav:"updatedAt"`
}

// ProductUpdate is a partial patch for a product. Nil fields are left
// untouched by an update.
type ProductUpdate struct {
	Code           *string        `json:"code,omitempty"`
	Name           *LocalizedText `json:"name,omitempty"`
	Description    *LocalizedText `json:"description,omitempty"`
	Category       *LocalizedText `json:"category,omitempty"`
	Subcategory    *LocalizedText `json:"subcategory,omitempty"`
	Price          *float64       `json:"price,omitempty"`
	PriceUnit      *string        `json:"priceUnit,omitempty"`
	PackagingType  *string        `json:"packagingType,omitempty"`
	UnitsPerBox    *int           `json:"unitsPerBox,omitempty"`
	BoxesPerPallet *int           `json:"boxesPerPallet,omitempty"`
	Images         *[]string      `json:"images,omitempty"`
}

// IsEmpty reports whether the patch touches no fields.
func (u ProductUpdate) IsEmpty() bool {
	return u.Code == nil &&
		u.Name == nil &&
		u.Description == nil &&
		u.Category == nil &&
		u.Subcategory == nil &&
		u.Price == nil &&
		u.PriceUnit == nil &&
		u.PackagingType == nil &&
		u.UnitsPerBox == nil &&
		u.BoxesPerPallet == nil &&
		u.Images == nil
}

// TouchesPalletInputs reports whether the patch changes either pallet
// math operand, which forces a recomputation of UnitsPerPallet.
func (u ProductUpdate) TouchesPalletInputs() bool {
	return u.UnitsPerBox != nil || u.BoxesPerPallet != nil
}

// DerivePalletUnits computes unitsPerBox * boxesPerPallet when both
// operands are present, nil otherwise. The derived value is recomputed
// on every create and on every update touching either input; it is
// never trusted from caller input.
func DerivePalletUnits(unitsPerBox, boxesPerPallet *int) *int {
	if unitsPerBox == nil || boxesPerPallet == nil {
		return nil
	}
	derived := *unitsPerBox * *boxesPerPallet
	return &derived
}

// NormalizeCode canonicalizes a product code for the uniqueness check.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidPriceUnit reports whether unit is an accepted denomination.
func IsValidPriceUnit(unit string) bool {
	for _, u := range PriceUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// IsValidPackagingType reports whether t is an accepted format.
func IsValidPackagingType(t string) bool {
	for _, p := range PackagingTypes {
		if p == t {
			return true
		}
	}
	return false
}

// IsAllowedImageType reports whether contentType may be uploaded.
func IsAllowedImageType(contentType string) bool {
	for _, t := range AllowedImageTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
