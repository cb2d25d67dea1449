package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/youmiiii1/go-shop/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByID materializes one order with its items and nested product data in
// two round trips. Returns nil when the order does not exist.
func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, []string{orderID})
	if err != nil {
		return nil, err
	}
	order.Items = items[orderID]
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}

	return order, nil
}

// ListByUser returns one page of the user's orders, newest first, with item
// snapshots and product data populated.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page, pageSize int) (*domain.OrderPage, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders WHERE user_id = $1
	`, userID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	pageResult := &domain.OrderPage{
		Items:    []domain.Order{},
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}

	if len(orderIDs) == 0 {
		return pageResult, nil
	}

	items, err := r.loadItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	for _, id := range orderIDs {
		order := orderMap[id]
		if lines, ok := items[id]; ok {
			order.Items = lines
		}
		pageResult.Items = append(pageResult.Items, *order)
	}

	return pageResult, nil
}

// loadItems batch-loads items for the given orders in one query, avoiding a
// per-order round trip.
func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.id, oi.product_id, oi.quantity, oi.unit_price, oi.total_price,
		       p.id, p.name, p.description, p.price, p.image_url, p.stock, p.rating, p.is_active, p.seller_id, p.category_id
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		var product domain.Product
		var price decimal.NullDecimal
		err := rows.Scan(
			&orderID, &item.ID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice,
			&product.ID, &product.Name, &product.Description, &price, &product.ImageURL,
			&product.Stock, &product.Rating, &product.IsActive, &product.SellerID, &product.CategoryID,
		)
		if err != nil {
			return nil, err
		}
		product.Price = price.Decimal
		item.Product = &product
		items[orderID] = append(items[orderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
