// Package events fans rating notifications out to connected clients and,
// optionally, to NATS.
package events

import (
	"context"
	"errors"
)

const (
	// TypePhotoRated goes to the owner of a rated photo.
	TypePhotoRated = "photo_rated"
	// TypePointsEarned goes to the rater.
	TypePointsEarned = "points_earned"
	// TypeConnected is the welcome message on a fresh websocket.
	TypeConnected = "connected"
)

type Event struct {
	Type      string `json:"event"`
	UserID    int64  `json:"userId"`
	PhotoID   int64  `json:"photoId,omitempty"`
	Points    int    `json:"points"`
	Timestamp int64  `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

var (
	_ Publisher = (*Hub)(nil)
	_ Publisher = (*NATSPublisher)(nil)
)
