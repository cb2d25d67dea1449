package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/youmiiii1/go-shop/internal/domain"
)

// maxAttempts bounds retries on serialization failures and deadlocks.
const maxAttempts = 3

// OrderReader materializes a persisted order with its items and nested
// product data, used to hand the caller the committed view.
type OrderReader interface {
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
}

// Engine converts a user's cart into a persisted order. All reads and writes
// of one checkout run on a single transaction: the cart lines are loaded with
// their product rows locked, every line is validated, the order and its item
// snapshots are inserted, stock is decremented, and the cart is cleared.
// Any validation failure rolls the whole unit back.
type Engine struct {
	db        *sql.DB
	orders    OrderReader
	logger    *slog.Logger
	completed metric.Int64Counter
}

func NewEngine(db *sql.DB, orders OrderReader, logger *slog.Logger) (*Engine, error) {
	meter := otel.Meter("checkout")
	completed, err := meter.Int64Counter("checkout.orders.completed",
		metric.WithDescription("Number of carts successfully converted into orders"),
	)
	if err != nil {
		return nil, err
	}

	return &Engine{
		db:        db,
		orders:    orders,
		logger:    logger,
		completed: completed,
	}, nil
}

// cartLine is one cart row joined with its locked product snapshot.
type cartLine struct {
	ProductID   string
	Quantity    int
	ProductName string
	Price       decimal.NullDecimal
	Stock       int
	IsActive    bool
}

func (e *Engine) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	var orderID string
	for attempt := 1; ; attempt++ {
		id, err := e.checkoutOnce(ctx, userID)
		if err == nil {
			orderID = id
			break
		}
		if !isRetryable(err) {
			return nil, err
		}
		if attempt == maxAttempts {
			e.logger.Warn("checkout retries exhausted", "user_id", userID, "attempts", attempt)
			return nil, ErrTxContention
		}
		e.logger.Info("retrying contended checkout", "user_id", userID, "attempt", attempt, "error", err)
	}

	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load created order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, ErrOrderNotMaterialized
	}

	e.completed.Add(ctx, 1)
	return order, nil
}

func (e *Engine) checkoutOnce(ctx context.Context, userID string) (string, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin checkout transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	lines, err := loadCartLines(ctx, tx, userID)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}

	total, items, err := assemble(lines)
	if err != nil {
		return "", err
	}

	orderID := uuid.New().String()
	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, orderID, userID, domain.OrderStatusPending, total, now)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New().String(), orderID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice)
		if err != nil {
			return "", fmt.Errorf("insert order item: %w", err)
		}
	}

	for _, line := range lines {
		if err := decrementStock(ctx, tx, line); err != nil {
			return "", err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return "", fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit checkout: %w", err)
	}

	e.logger.Info("order created", "order_id", orderID, "user_id", userID, "total_amount", total.String(), "lines", len(items))
	return orderID, nil
}

// loadCartLines reads the cart in insertion order and takes row locks on the
// referenced products, serializing competing checkouts per product row.
func loadCartLines(ctx context.Context, tx *sql.Tx, userID string) ([]cartLine, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT ci.product_id, ci.quantity, p.name, p.price, p.stock, p.is_active
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, ci.id
		FOR UPDATE OF p
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []cartLine
	for rows.Next() {
		var line cartLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.ProductName, &line.Price, &line.Stock, &line.IsActive); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}

	return lines, nil
}

// assemble validates every line in order and prices the order. Totals come
// from the locked product snapshots, never from the request.
func assemble(lines []cartLine) (decimal.Decimal, []domain.OrderItem, error) {
	total := decimal.Zero
	items := make([]domain.OrderItem, 0, len(lines))

	for _, line := range lines {
		if !line.IsActive {
			return decimal.Zero, nil, &ProductUnavailableError{ProductID: line.ProductID}
		}
		if line.Stock < line.Quantity {
			return decimal.Zero, nil, &InsufficientStockError{
				ProductID: line.ProductID,
				Name:      line.ProductName,
				Requested: line.Quantity,
				Available: line.Stock,
			}
		}
		if !line.Price.Valid {
			return decimal.Zero, nil, &MissingPriceError{ProductID: line.ProductID, Name: line.ProductName}
		}

		unitPrice := line.Price.Decimal
		totalPrice := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(totalPrice)

		items = append(items, domain.OrderItem{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  unitPrice,
			TotalPrice: totalPrice,
		})
	}

	return total, items, nil
}

// decrementStock applies the staged decrement with a stock guard. The rows
// are already locked, so a zero update count means the guard itself tripped.
func decrementStock(ctx context.Context, tx *sql.Tx, line cartLine) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
	`, line.ProductID, line.Quantity)
	if err != nil {
		return fmt.Errorf("decrement stock for product %s: %w", line.ProductID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock for product %s: %w", line.ProductID, err)
	}

	if rowsAffected == 0 {
		return &InsufficientStockError{
			ProductID: line.ProductID,
			Name:      line.ProductName,
			Requested: line.Quantity,
			Available: line.Stock,
		}
	}

	return nil
}

// isRetryable matches Postgres serialization_failure and deadlock_detected.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}
