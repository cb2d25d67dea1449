package domain

import "time"

type Review struct {
	ID          string    `json:"id"`
	Comment     *string   `json:"comment,omitempty"`
	CommentDate time.Time `json:"comment_date"`
	Grade       int       `json:"grade"`
	IsActive    bool      `json:"is_active"`
	UserID      string    `json:"user_id"`
	ProductID   string    `json:"product_id"`
}
