package domain

import "time"

// ReviewChangedEvent is published after a review is created or soft-deleted,
// so the rating worker can recompute the product's average grade.
type ReviewChangedEvent struct {
	ReviewID  string    `json:"review_id"`
	ProductID string    `json:"product_id"`
	Timestamp time.Time `json:"timestamp"`
}
