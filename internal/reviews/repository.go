package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/youmiiii1/go-shop/internal/domain"
)

var (
	ErrReviewNotFound  = errors.New("Review not found")
	ErrProductNotFound = errors.New("Product not found")
)

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) ListActive(ctx context.Context) ([]domain.Review, error) {
	return r.list(ctx, `
		SELECT id, comment, comment_date, grade, is_active, user_id, product_id
		FROM reviews
		WHERE is_active
		ORDER BY comment_date DESC
	`)
}

func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND is_active)
	`, productID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	return r.list(ctx, `
		SELECT id, comment, comment_date, grade, is_active, user_id, product_id
		FROM reviews
		WHERE product_id = $1 AND is_active
		ORDER BY comment_date DESC
	`, productID)
}

func (r *ReviewRepository) Create(ctx context.Context, userID, productID string, grade int, comment *string) (*domain.Review, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND is_active)
	`, productID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return nil, ErrProductNotFound
	}

	review := &domain.Review{
		ID:          uuid.New().String(),
		Comment:     comment,
		CommentDate: time.Now().UTC(),
		Grade:       grade,
		IsActive:    true,
		UserID:      userID,
		ProductID:   productID,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO reviews (id, comment, comment_date, grade, is_active, user_id, product_id)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
	`, review.ID, review.Comment, review.CommentDate, review.Grade, review.UserID, review.ProductID)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	return review, nil
}

// Get returns the active review or nil when it does not exist.
func (r *ReviewRepository) Get(ctx context.Context, id string) (*domain.Review, error) {
	var review domain.Review
	err := r.db.QueryRowContext(ctx, `
		SELECT id, comment, comment_date, grade, is_active, user_id, product_id
		FROM reviews
		WHERE id = $1 AND is_active
	`, id).Scan(&review.ID, &review.Comment, &review.CommentDate, &review.Grade, &review.IsActive, &review.UserID, &review.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &review, nil
}

func (r *ReviewRepository) SoftDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE reviews SET is_active = FALSE WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// RecomputeRating sets the product's rating to the average grade over its
// active reviews, zero when none remain.
func (r *ReviewRepository) RecomputeRating(ctx context.Context, productID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET rating = COALESCE(
			(SELECT AVG(grade) FROM reviews WHERE product_id = $1 AND is_active),
			0
		)
		WHERE id = $1
	`, productID)
	if err != nil {
		return fmt.Errorf("recompute rating for product %s: %w", productID, err)
	}
	return nil
}

func (r *ReviewRepository) list(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	reviews := []domain.Review{}
	for rows.Next() {
		var review domain.Review
		err := rows.Scan(&review.ID, &review.Comment, &review.CommentDate, &review.Grade, &review.IsActive, &review.UserID, &review.ProductID)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}

	return reviews, rows.Err()
}
