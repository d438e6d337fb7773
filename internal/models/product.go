package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductStatus represents the lifecycle status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
)

// ValidProductStatus reports whether s (already lower-cased) is a known status.
func ValidProductStatus(s string) bool {
	switch ProductStatus(s) {
	case ProductStatusActive, ProductStatusDraft, ProductStatusArchived:
		return true
	}
	return false
}

// JSON type for PostgreSQL JSONB (object/map)
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// JSONArray type for PostgreSQL JSONB (array)
type JSONArray []interface{}

func (j JSONArray) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONArray, 0)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Product represents a catalog product entity
type Product struct {
	ID             uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name           string           `json:"name" gorm:"not null;index"`
	Slug           string           `json:"slug" gorm:"not null;uniqueIndex"`
	SKU            string           `json:"sku" gorm:"not null;uniqueIndex"`
	Description    *string          `json:"description,omitempty"`
	Price          float64          `json:"price" gorm:"not null"`
	CompareAtPrice *float64         `json:"compareAtPrice,omitempty" gorm:"column:compare_at_price"`
	Quantity       int              `json:"quantity" gorm:"not null;default:0"`
	MOQ            int              `json:"moq" gorm:"column:moq;not null;default:1"`
	Status         ProductStatus    `json:"status" gorm:"not null;default:'draft';index"`
	Featured       bool             `json:"featured" gorm:"not null;default:false"`
	SeoTitle       *string          `json:"seoTitle,omitempty" gorm:"column:seo_title;type:text"`
	SeoDescription *string          `json:"seoDescription,omitempty" gorm:"column:seo_description;type:text"`
	Tags           *JSONArray       `json:"tags,omitempty" gorm:"type:jsonb"`
	CategoryID     *uuid.UUID       `json:"categoryId,omitempty" gorm:"type:uuid;index"`
	Metadata       *JSON            `json:"metadata,omitempty" gorm:"type:jsonb"`
	Images         []ProductImage   `json:"images,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Variants       []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	DeletedAt      *gorm.DeletedAt  `json:"deletedAt,omitempty" gorm:"index"`
}

// ProductImage represents an image attached to a product, ordered by Position
type ProductImage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	URL       string    `json:"url" gorm:"not null"`
	AltText   *string   `json:"altText,omitempty"`
	Position  int       `json:"position" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProductVariant represents one purchasable configuration of a product.
// Option1 carries the size axis, Option2 the color axis; a display color
// hex value lives in Metadata under "color_hex".
type ProductVariant struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	SKU       *string   `json:"sku,omitempty"`
	Price     float64   `json:"price" gorm:"not null"`
	Quantity  int       `json:"quantity" gorm:"not null;default:0"`
	Option1   *string   `json:"option1,omitempty"`
	Option2   *string   `json:"option2,omitempty"`
	Metadata  *JSON     `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string          `json:"name" gorm:"not null"`
	Slug        string          `json:"slug" gorm:"not null;uniqueIndex"`
	Description *string         `json:"description,omitempty"`
	Status      string          `json:"status" gorm:"not null;default:'active';index"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	DeletedAt   *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
}

// Error represents an API error
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}
