package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/youmiiii1/go-shop/internal/domain"
)

var (
	ErrCategoryNotFound = errors.New("Category not found or inactive")
	ErrParentNotFound   = errors.New("Parent category not found")
	ErrSelfParent       = errors.New("Category cannot be its own parent")
	ErrProductNotFound  = errors.New("Product not found")
	ErrNotOwner         = errors.New("product belongs to another seller")
)

type CategoryInput struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

type ProductInput struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url"`
	Stock       int             `json:"stock"`
	CategoryID  string          `json:"category_id"`
}

// CatalogRepository owns categories and products. Deletion is always a soft
// delete (is_active = false) and every read path filters on is_active. Stock
// is read here but mutated only by the checkout engine.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, parent_id, is_active
		FROM categories
		WHERE is_active
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.IsActive); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

func (r *CatalogRepository) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	if input.ParentID != nil {
		active, err := r.categoryActive(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, ErrParentNotFound
		}
	}

	category := &domain.Category{
		ID:       uuid.New().String(),
		Name:     input.Name,
		ParentID: input.ParentID,
		IsActive: true,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, parent_id, is_active)
		VALUES ($1, $2, $3, TRUE)
	`, category.ID, category.Name, category.ParentID)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}

	return category, nil
}

func (r *CatalogRepository) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*domain.Category, error) {
	active, err := r.categoryActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrCategoryNotFound
	}

	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, ErrSelfParent
		}
		parentActive, err := r.categoryActive(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if !parentActive {
			return nil, ErrParentNotFound
		}
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE categories SET name = $2, parent_id = $3 WHERE id = $1
	`, id, input.Name, input.ParentID)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	return &domain.Category{ID: id, Name: input.Name, ParentID: input.ParentID, IsActive: true}, nil
}

func (r *CatalogRepository) DeleteCategory(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE categories SET is_active = FALSE WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	return nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context, page, pageSize int) (*domain.ProductPage, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE is_active`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, image_url, stock, rating, is_active, seller_id, category_id
		FROM products
		WHERE is_active
		ORDER BY name, id
		OFFSET $1 LIMIT $2
	`, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := &domain.ProductPage{Items: []domain.Product{}, Total: total, Page: page, PageSize: pageSize}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, *product)
	}

	return result, rows.Err()
}

func (r *CatalogRepository) ListProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	active, err := r.categoryActive(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrCategoryNotFound
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, image_url, stock, rating, is_active, seller_id, category_id
		FROM products
		WHERE category_id = $1 AND is_active
		ORDER BY name, id
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list products by category: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}

	return products, rows.Err()
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, image_url, stock, rating, is_active, seller_id, category_id
		FROM products
		WHERE id = $1 AND is_active
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	active, err := r.categoryActive(ctx, product.CategoryID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrCategoryNotFound
	}

	return product, nil
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, sellerID string, input ProductInput) (*domain.Product, error) {
	active, err := r.categoryActive(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrCategoryNotFound
	}

	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
		Stock:       input.Stock,
		IsActive:    true,
		SellerID:    sellerID,
		CategoryID:  input.CategoryID,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, image_url, stock, is_active, seller_id, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
	`, product.ID, product.Name, product.Description, product.Price, product.ImageURL, product.Stock, product.SellerID, product.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	return product, nil
}

func (r *CatalogRepository) UpdateProduct(ctx context.Context, id, sellerID string, input ProductInput) (*domain.Product, error) {
	current, err := r.ownedProduct(ctx, id, sellerID)
	if err != nil {
		return nil, err
	}

	active, err := r.categoryActive(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrCategoryNotFound
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, image_url = $5, stock = $6, category_id = $7
		WHERE id = $1
	`, id, input.Name, input.Description, input.Price, input.ImageURL, input.Stock, input.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	current.Name = input.Name
	current.Description = input.Description
	current.Price = input.Price
	current.ImageURL = input.ImageURL
	current.Stock = input.Stock
	current.CategoryID = input.CategoryID
	return current, nil
}

func (r *CatalogRepository) DeleteProduct(ctx context.Context, id, sellerID string) (*domain.Product, error) {
	product, err := r.ownedProduct(ctx, id, sellerID)
	if err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE products SET is_active = FALSE WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}

	product.IsActive = false
	return product, nil
}

func (r *CatalogRepository) ownedProduct(ctx context.Context, id, sellerID string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, image_url, stock, rating, is_active, seller_id, category_id
		FROM products
		WHERE id = $1 AND is_active
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if product.SellerID != sellerID {
		return nil, ErrNotOwner
	}

	return product, nil
}

func (r *CatalogRepository) categoryActive(ctx context.Context, id string) (bool, error) {
	var active bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND is_active)
	`, id).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return active, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	var price decimal.NullDecimal

	err := row.Scan(
		&product.ID, &product.Name, &product.Description, &price, &product.ImageURL,
		&product.Stock, &product.Rating, &product.IsActive, &product.SellerID, &product.CategoryID,
	)
	if err != nil {
		return nil, err
	}

	product.Price = price.Decimal
	return &product, nil
}
