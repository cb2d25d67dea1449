package cart

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
	ErrItemNotFound    = errors.New("Cart item not found")
	ErrProductNotFound = errors.New("Product not found")
)

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Get returns the user's cart with product data joined, lines in insertion
// order. Product activity is not re-checked here; it is enforced on add and
// update, and again by checkout.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.id, p.name, p.description, p.price, p.image_url, p.stock, p.rating, p.is_active, p.seller_id, p.category_id
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, ci.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cart := &domain.Cart{
		UserID:     userID,
		Items:      []domain.CartItem{},
		TotalPrice: decimal.Zero,
	}

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}

		cart.Items = append(cart.Items, *item)
		cart.TotalQuantity += item.Quantity
		cart.TotalPrice = cart.TotalPrice.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cart, nil
}

// AddItem merges quantities: an existing line for the product is incremented,
// otherwise a new line is created. The product must exist and be active.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error) {
	if err := r.ensureProductAvailable(ctx, productID); err != nil {
		return nil, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
	`, uuid.New().String(), userID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}

	return r.getItem(ctx, userID, productID)
}

// UpdateItem replaces the line's quantity absolutely.
func (r *CartRepository) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartItem, error) {
	if err := r.ensureProductAvailable(ctx, productID); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE cart_items
		SET quantity = $3, updated_at = NOW()
		WHERE user_id = $1 AND product_id = $2
	`, userID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, ErrItemNotFound
	}

	return r.getItem(ctx, userID, productID)
}

func (r *CartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2
	`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// Clear deletes every line unconditionally. Clearing an empty cart succeeds.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *CartRepository) ensureProductAvailable(ctx context.Context, productID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND is_active)
	`, productID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check product availability: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}
	return nil
}

func (r *CartRepository) getItem(ctx context.Context, userID, productID string) (*domain.CartItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT ci.id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		       p.id, p.name, p.description, p.price, p.image_url, p.stock, p.rating, p.is_active, p.seller_id, p.category_id
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1 AND ci.product_id = $2
	`, userID, productID)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.CartItem, error) {
	var item domain.CartItem
	var product domain.Product
	var price decimal.NullDecimal

	err := row.Scan(
		&item.ID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
		&product.ID, &product.Name, &product.Description, &price, &product.ImageURL,
		&product.Stock, &product.Rating, &product.IsActive, &product.SellerID, &product.CategoryID,
	)
	if err != nil {
		return nil, err
	}

	product.Price = price.Decimal
	item.Product = &product
	return &item, nil
}
