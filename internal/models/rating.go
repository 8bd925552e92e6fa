package models

import "time"

// Rating is one entry of the rating ledger. (PhotoID, RaterID) is unique.
type Rating struct {
	PhotoID   int64     `json:"photoId"`
	RaterID   int64     `json:"raterId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RatingResult carries the balances after a rating was recorded.
type RatingResult struct {
	PhotoID     int64 `json:"photoId"`
	RaterID     int64 `json:"raterId"`
	OwnerID     int64 `json:"ownerId"`
	RaterPoints int   `json:"raterPoints"`
	OwnerPoints int   `json:"ownerPoints"`
}

// RaterProfile is the demographic data attributed to a rater, taken from
// their most recently uploaded photo. HasPhoto is false for raters without one.
type RaterProfile struct {
	RaterID  int64
	HasPhoto bool
	Gender   Gender
	Age      int
}
