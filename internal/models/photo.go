package models

import "time"

// Gender is the demographic tag attached to an uploaded photo.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the known genders.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Photo represents a user-uploaded photo
type Photo struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	FilePath  string    `json:"filePath"`
	Gender    Gender    `json:"gender"`
	Age       int       `json:"age"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// PhotoFilter narrows the photos offered for rating. Age bounds apply only
// when both MinAge and MaxAge are set.
type PhotoFilter struct {
	Gender *Gender
	MinAge *int
	MaxAge *int
}

// AgeRange returns the inclusive bounds and whether they should be applied.
func (f PhotoFilter) AgeRange() (min, max int, ok bool) {
	if f.MinAge == nil || f.MaxAge == nil {
		return 0, 0, false
	}
	return *f.MinAge, *f.MaxAge, true
}

type ToggleActiveRequest struct {
	PhotoID  int64 `json:"photoId"`
	IsActive bool  `json:"isActive"`
}

type RateRequest struct {
	PhotoID int64 `json:"photoId"`
}
