package models

type GenderStats struct {
	Male   int `json:"male"`
	Female int `json:"female"`
	Other  int `json:"other"`
}

type AgeStats struct {
	Under20        int `json:"under20"`
	Between20and30 int `json:"between20and30"`
	Over30         int `json:"over30"`
}

// PhotoStats aggregates the ratings a photo received.
type PhotoStats struct {
	Total    int         `json:"total"`
	ByGender GenderStats `json:"byGender"`
	ByAge    AgeStats    `json:"byAge"`
}

// Add buckets one rater into the stats. Total is counted separately.
func (s *PhotoStats) Add(gender Gender, age int) {
	switch gender {
	case GenderMale:
		s.ByGender.Male++
	case GenderFemale:
		s.ByGender.Female++
	case GenderOther:
		s.ByGender.Other++
	}

	switch {
	case age < 20:
		s.ByAge.Under20++
	case age <= 30:
		s.ByAge.Between20and30++
	default:
		s.ByAge.Over30++
	}
}
