package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ecrimah/tshirts/internal/models"
)

const (
	cacheTTL        = 5 * time.Minute
	productCacheKey = "product:%s"
	listCachePrefix = "products:list:"
)

// ProductsRepository is the catalog store: products, images, variants and
// categories over Postgres, with a redis read cache for the storefront
// queries. The import pipeline writes through it one product group at a
// time; each group's writes are wrapped in a single transaction.
type ProductsRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewProductsRepository creates a repository. redis may be nil or
// unreachable; caching silently degrades to direct DB reads.
func NewProductsRepository(db *gorm.DB, redisClient *redis.Client) *ProductsRepository {
	return &ProductsRepository{db: db, redis: redisClient}
}

func (r *ProductsRepository) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if r.redis == nil {
		return false
	}
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (r *ProductsRepository) cacheSet(ctx context.Context, key string, value interface{}) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.redis.Set(ctx, key, data, cacheTTL)
}

// invalidateProductCaches drops the cached entry for one product plus all
// cached list pages.
func (r *ProductsRepository) invalidateProductCaches(ctx context.Context, productID uuid.UUID) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, fmt.Sprintf(productCacheKey, productID))

	iter := r.redis.Scan(ctx, 0, listCachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		r.redis.Del(ctx, keys...)
	}
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GetProducts returns one page of products, optionally filtered by status.
func (r *ProductsRepository) GetProducts(ctx context.Context, page, limit int, status string) ([]models.Product, int64, error) {
	cacheKey := fmt.Sprintf("%s%d:%d:%s", listCachePrefix, page, limit, status)
	var cached struct {
		Products []models.Product `json:"products"`
		Total    int64            `json:"total"`
	}
	if r.cacheGet(ctx, cacheKey, &cached) {
		return cached.Products, cached.Total, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := query.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	cached.Products = products
	cached.Total = total
	r.cacheSet(ctx, cacheKey, cached)
	return products, total, nil
}

// GetProductByID fetches one product with its images, optionally with
// variants.
func (r *ProductsRepository) GetProductByID(ctx context.Context, productID uuid.UUID, includeVariants bool) (*models.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
	if includeVariants {
		query = query.Preload("Variants")
	}

	var product models.Product
	if err := query.First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductVariants returns all variants for a product.
func (r *ProductsRepository) GetProductVariants(ctx context.Context, productID uuid.UUID) ([]models.ProductVariant, error) {
	var variants []models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&variants).Error
	return variants, err
}

// GetProductImages returns a product's images in display order.
func (r *ProductsRepository) GetProductImages(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	var images []models.ProductImage
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("position ASC").
		Find(&images).Error
	return images, err
}

// GetCategories returns every category.
func (r *ProductsRepository) GetCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

// ActiveCategories returns the categories eligible for import resolution.
func (r *ProductsRepository) ActiveCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).
		Where("status = ?", "active").
		Find(&categories).Error
	return categories, err
}

// ProductNameIndex maps every existing product's trimmed, lower-cased name
// to its id. Used once at the start of an import run.
func (r *ProductsRepository) ProductNameIndex(ctx context.Context) (map[string]uuid.UUID, error) {
	var rows []struct {
		ID   uuid.UUID
		Name string
	}
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id", "name").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	index := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		key := normalizeKey(row.Name)
		if key != "" {
			index[key] = row.ID
		}
	}
	return index, nil
}

// SlugExists reports whether any product already holds the slug.
func (r *ProductsRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

// CreateImportedProduct persists one product group atomically: the product
// record, its images in list order, and its variants.
func (r *ProductsRepository) CreateImportedProduct(ctx context.Context, product *models.Product, images []models.ProductImage, variants []models.ProductVariant) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if product.ID == uuid.Nil {
			product.ID = uuid.New()
		}
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].ID = uuid.New()
			images[i].ProductID = product.ID
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		for i := range variants {
			variants[i].ID = uuid.New()
			variants[i].ProductID = product.ID
		}
		if len(variants) > 0 {
			if err := tx.Create(&variants).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidateProductCaches(ctx, product.ID)
	return nil
}

// UpdateImportedProduct mutates an existing product's business fields in
// one transaction. Images are appended after the current maximum position
// and variants are added to the existing set; slug and SKU are untouched.
func (r *ProductsRepository) UpdateImportedProduct(ctx context.Context, productID uuid.UUID, updates map[string]interface{}, images []models.ProductImage, variants []models.ProductVariant) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if len(images) > 0 {
			var maxPos sql.NullInt64
			if err := tx.Model(&models.ProductImage{}).
				Where("product_id = ?", productID).
				Select("MAX(position)").
				Scan(&maxPos).Error; err != nil {
				return err
			}
			offset := 0
			if maxPos.Valid {
				offset = int(maxPos.Int64) + 1
			}
			for i := range images {
				images[i].ID = uuid.New()
				images[i].ProductID = productID
				images[i].Position += offset
			}
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}

		if len(variants) > 0 {
			for i := range variants {
				variants[i].ID = uuid.New()
				variants[i].ProductID = productID
			}
			if err := tx.Create(&variants).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.invalidateProductCaches(ctx, productID)
	return nil
}
