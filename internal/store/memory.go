package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"photo-rating/internal/common"
	"photo-rating/internal/models"
)

type ratingKey struct {
	photoID int64
	raterID int64
}

// MemoryStore keeps everything in maps behind one mutex. It backs tests and
// the STORE=memory development mode.
type MemoryStore struct {
	mu sync.Mutex

	now func() time.Time

	nextUserID  int64
	nextPhotoID int64

	users   map[int64]*models.User
	byEmail map[string]int64
	photos  map[int64]*models.Photo
	ratings map[ratingKey]models.Rating
	// ratingOrder keeps ledger insertion order per photo
	ratingOrder map[int64][]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		users:       make(map[int64]*models.User),
		byEmail:     make(map[string]int64),
		photos:      make(map[int64]*models.Photo),
		ratings:     make(map[ratingKey]models.Rating),
		ratingOrder: make(map[int64][]int64),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) CreateUser(ctx context.Context, email, passwordHash string, initialPoints int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := s.byEmail[key]; ok {
		return nil, common.ErrUserExists
	}

	s.nextUserID++
	u := &models.User{
		ID:           s.nextUserID,
		Email:        email,
		PasswordHash: passwordHash,
		Points:       initialPoints,
		CreatedAt:    s.now(),
	}
	s.users[u.ID] = u
	s.byEmail[key] = u.ID

	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStore) CreatePhoto(ctx context.Context, p *models.Photo) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.UserID]; !ok {
		return nil, common.ErrNotFound
	}

	s.nextPhotoID++
	cp := *p
	cp.ID = s.nextPhotoID
	cp.CreatedAt = s.now()
	s.photos[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (s *MemoryStore) GetPhoto(ctx context.Context, id int64) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.photos[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// sortedPhotos returns photos in id order. Callers hold s.mu.
func (s *MemoryStore) sortedPhotos() []*models.Photo {
	out := make([]*models.Photo, 0, len(s.photos))
	for _, p := range s.photos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) ListPhotosByOwner(ctx context.Context, ownerID int64) ([]models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	photos := []models.Photo{}
	for _, p := range s.sortedPhotos() {
		if p.UserID == ownerID {
			photos = append(photos, *p)
		}
	}
	return photos, nil
}

func (s *MemoryStore) FindPhotoToRate(ctx context.Context, raterID int64, filter models.PhotoFilter) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	minAge, maxAge, useAge := filter.AgeRange()
	for _, p := range s.sortedPhotos() {
		if p.UserID == raterID || !p.IsActive {
			continue
		}
		if filter.Gender != nil && p.Gender != *filter.Gender {
			continue
		}
		if useAge && (p.Age < minAge || p.Age > maxAge) {
			continue
		}
		if _, rated := s.ratings[ratingKey{p.ID, raterID}]; rated {
			continue
		}
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) SetPhotoActive(ctx context.Context, ownerID, photoID int64, active bool) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.photos[photoID]
	if !ok || p.UserID != ownerID {
		return nil, common.ErrNotFound
	}
	if active && s.users[ownerID].Points <= 0 {
		return nil, common.ErrInsufficientBalance
	}

	p.IsActive = active
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) HasRated(ctx context.Context, photoID, raterID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.ratings[ratingKey{photoID, raterID}]
	return ok, nil
}

func (s *MemoryStore) RecordRating(ctx context.Context, photoID, raterID int64) (*models.RatingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.photos[photoID]
	if !ok {
		return nil, common.ErrNotFound
	}
	rater, ok := s.users[raterID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if p.UserID == raterID {
		return nil, common.ErrSelfRating
	}
	key := ratingKey{photoID, raterID}
	if _, dup := s.ratings[key]; dup {
		return nil, common.ErrAlreadyRated
	}

	owner := s.users[p.UserID]
	s.ratings[key] = models.Rating{PhotoID: photoID, RaterID: raterID, CreatedAt: s.now()}
	s.ratingOrder[photoID] = append(s.ratingOrder[photoID], raterID)
	rater.Points++
	owner.Points--

	return &models.RatingResult{
		PhotoID:     photoID,
		RaterID:     raterID,
		OwnerID:     owner.ID,
		RaterPoints: rater.Points,
		OwnerPoints: owner.Points,
	}, nil
}

func (s *MemoryStore) RaterProfiles(ctx context.Context, photoID int64) ([]models.RaterProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// latest photo per user; ties on CreatedAt go to the higher id
	latest := make(map[int64]*models.Photo)
	for _, p := range s.photos {
		cur, ok := latest[p.UserID]
		if !ok || p.CreatedAt.After(cur.CreatedAt) || (p.CreatedAt.Equal(cur.CreatedAt) && p.ID > cur.ID) {
			latest[p.UserID] = p
		}
	}

	raters := s.ratingOrder[photoID]
	profiles := make([]models.RaterProfile, 0, len(raters))
	for _, raterID := range raters {
		prof := models.RaterProfile{RaterID: raterID}
		if p, ok := latest[raterID]; ok {
			prof.HasPhoto = true
			prof.Gender = p.Gender
			prof.Age = p.Age
		}
		profiles = append(profiles, prof)
	}
	return profiles, nil
}
