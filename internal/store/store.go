// Package store persists users, photos and the rating ledger. Every
// implementation must make RecordRating and SetPhotoActive atomic: the ledger
// insert and both balance deltas land together or not at all, and activation
// re-checks the balance in the same unit as the write.
package store

import (
	"context"

	"photo-rating/internal/models"
)

// UserStore is the credential store.
type UserStore interface {
	// CreateUser returns common.ErrUserExists when the email is taken.
	CreateUser(ctx context.Context, email, passwordHash string, initialPoints int) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// PhotoStore holds photo metadata.
type PhotoStore interface {
	CreatePhoto(ctx context.Context, p *models.Photo) (*models.Photo, error)
	GetPhoto(ctx context.Context, id int64) (*models.Photo, error)
	ListPhotosByOwner(ctx context.Context, ownerID int64) ([]models.Photo, error)
	// FindPhotoToRate returns nil, nil when no photo is eligible.
	FindPhotoToRate(ctx context.Context, raterID int64, filter models.PhotoFilter) (*models.Photo, error)
	// SetPhotoActive returns common.ErrNotFound when the photo is missing or
	// not owned by ownerID, and common.ErrInsufficientBalance when activating
	// with a balance <= 0.
	SetPhotoActive(ctx context.Context, ownerID, photoID int64, active bool) (*models.Photo, error)
}

// RatingLedger is the append-only set of (photo, rater) pairs.
type RatingLedger interface {
	HasRated(ctx context.Context, photoID, raterID int64) (bool, error)
	// RecordRating inserts the rating and moves one point from the photo owner
	// to the rater. A duplicate pair yields common.ErrAlreadyRated.
	RecordRating(ctx context.Context, photoID, raterID int64) (*models.RatingResult, error)
	// RaterProfiles returns one entry per rating of photoID.
	RaterProfiles(ctx context.Context, photoID int64) ([]models.RaterProfile, error)
}

type Store interface {
	UserStore
	PhotoStore
	RatingLedger
	Ping(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
