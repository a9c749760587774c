package domain

import (
	"errors"
	"time"
)

const (
	MinScore = 1
	MaxScore = 5
)

var ErrRatingNotFound = errors.New("rating not found")

// Rating is one user's score and review for one cafe.
type Rating struct {
	ID         string
	UserID     string
	CafeID     string
	Score      int
	Review     string
	AuthorName string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Favorite is a user's bookmark of a cafe.
type Favorite struct {
	UserID    string
	CafeID    string
	CreatedAt time.Time
}
