package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"photo-rating/internal/common"
	"photo-rating/internal/events"
	"photo-rating/internal/metrics"
	"photo-rating/internal/models"
	"photo-rating/internal/storage"
	"photo-rating/internal/store"
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UploadInput describes one multipart photo upload.
type UploadInput struct {
	OwnerID     int64
	Gender      string
	Age         string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// PhotoService runs the points economy: selection, rating, activation and stats.
type PhotoService struct {
	store          store.Store
	storage        storage.Storage
	events         events.Publisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewPhotoService(st store.Store, files storage.Storage, pub events.Publisher, m *metrics.Metrics, maxUploadBytes int64, logger *slog.Logger) *PhotoService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &PhotoService{
		store:          st,
		storage:        files,
		events:         pub,
		metrics:        m,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func parseGender(s string) (models.Gender, error) {
	g := models.Gender(strings.ToLower(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", common.Invalid("Gender must be male, female or other")
	}
	return g, nil
}

func parseAge(field, s string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || age <= 0 {
		return 0, common.Invalid("%s must be a positive integer", field)
	}
	return age, nil
}

// ParseFilter builds a selection filter from raw query values. Empty values
// leave the matching criterion unset.
func ParseFilter(gender, minAge, maxAge string) (models.PhotoFilter, error) {
	var f models.PhotoFilter
	if gender != "" {
		g, err := parseGender(gender)
		if err != nil {
			return f, err
		}
		f.Gender = &g
	}
	if minAge != "" {
		v, err := parseAge("minAge", minAge)
		if err != nil {
			return f, err
		}
		f.MinAge = &v
	}
	if maxAge != "" {
		v, err := parseAge("maxAge", maxAge)
		if err != nil {
			return f, err
		}
		f.MaxAge = &v
	}
	return f, nil
}

// UploadPhoto stores the bytes and records an inactive photo.
func (s *PhotoService) UploadPhoto(ctx context.Context, in UploadInput) (*models.Photo, error) {
	gender, err := parseGender(in.Gender)
	if err != nil {
		return nil, err
	}
	age, err := parseAge("age", in.Age)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	defaultType, ok := allowedExtensions[ext]
	if !ok {
		return nil, common.Invalid("Unsupported file type %q", ext)
	}
	if s.maxUploadBytes > 0 && in.Size > s.maxUploadBytes {
		return nil, common.Invalid("File exceeds %d bytes", s.maxUploadBytes)
	}
	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = defaultType
	}

	path, err := s.storage.Save(ctx, storage.ObjectName(in.OwnerID, in.Filename), in.Body, in.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("save photo: %w", err)
	}

	photo, err := s.store.CreatePhoto(ctx, &models.Photo{
		UserID:   in.OwnerID,
		FilePath: path,
		Gender:   gender,
		Age:      age,
	})
	if err != nil {
		// try to cleanup the stored file if the insert fails
		if derr := s.storage.Delete(ctx, path); derr != nil {
			s.logger.WarnContext(ctx, "cleanup stored photo", "path", path, "error", derr)
		}
		return nil, err
	}

	s.metrics.PhotoUploaded()
	s.logger.InfoContext(ctx, "photo uploaded", "photo_id", photo.ID, "user_id", in.OwnerID)
	return photo, nil
}

// SelectPhotoToRate returns one active photo the rater may rate, or nil.
func (s *PhotoService) SelectPhotoToRate(ctx context.Context, raterID int64, filter models.PhotoFilter) (*models.Photo, error) {
	if _, err := s.store.GetUser(ctx, raterID); err != nil {
		return nil, err
	}
	return s.store.FindPhotoToRate(ctx, raterID, filter)
}

func (s *PhotoService) reject(ctx context.Context, err error, photoID, raterID int64) error {
	reason := common.Kind(err)
	if errors.Is(err, common.ErrAlreadyRated) {
		reason = "already_rated"
	}
	s.metrics.RatingRejected(reason)
	s.logger.DebugContext(ctx, "rating rejected", "photo_id", photoID, "rater_id", raterID, "reason", reason)
	return err
}

// RatePhoto records one rating and moves a point from the owner to the rater.
func (s *PhotoService) RatePhoto(ctx context.Context, raterID, photoID int64) (*models.RatingResult, error) {
	photo, err := s.store.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, s.reject(ctx, err, photoID, raterID)
	}
	if photo.UserID == raterID {
		return nil, s.reject(ctx, common.ErrSelfRating, photoID, raterID)
	}
	rated, err := s.store.HasRated(ctx, photoID, raterID)
	if err != nil {
		return nil, err
	}
	if rated {
		return nil, s.reject(ctx, common.ErrAlreadyRated, photoID, raterID)
	}

	// the store repeats every check atomically; a racing duplicate still fails here
	res, err := s.store.RecordRating(ctx, photoID, raterID)
	if err != nil {
		return nil, s.reject(ctx, err, photoID, raterID)
	}

	s.metrics.RatingRecorded()
	s.logger.InfoContext(ctx, "photo rated",
		"photo_id", photoID, "rater_id", raterID, "owner_id", res.OwnerID,
		"rater_points", res.RaterPoints, "owner_points", res.OwnerPoints)
	s.notify(ctx, res)

	return res, nil
}

func (s *PhotoService) notify(ctx context.Context, res *models.RatingResult) {
	now := time.Now().Unix()
	evs := []events.Event{
		{Type: events.TypePhotoRated, UserID: res.OwnerID, PhotoID: res.PhotoID, Points: res.OwnerPoints, Timestamp: now},
		{Type: events.TypePointsEarned, UserID: res.RaterID, PhotoID: res.PhotoID, Points: res.RaterPoints, Timestamp: now},
	}
	for _, ev := range evs {
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "publish event", "event", ev.Type, "user_id", ev.UserID, "error", err)
		}
	}
}

// SetPhotoActive flips visibility of an owned photo. Activation needs a
// positive balance and costs nothing.
func (s *PhotoService) SetPhotoActive(ctx context.Context, ownerID, photoID int64, active bool) (*models.Photo, error) {
	photo, err := s.store.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.UserID != ownerID {
		return nil, common.ErrNotFound
	}

	if active {
		owner, err := s.store.GetUser(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if owner.Points <= 0 {
			s.metrics.Activation("denied")
			return nil, common.ErrInsufficientBalance
		}
	}

	updated, err := s.store.SetPhotoActive(ctx, ownerID, photoID, active)
	if err != nil {
		if errors.Is(err, common.ErrInsufficientBalance) {
			s.metrics.Activation("denied")
		}
		return nil, err
	}

	if active {
		s.metrics.Activation("activated")
	} else {
		s.metrics.Activation("deactivated")
	}
	return updated, nil
}

func (s *PhotoService) MyPhotos(ctx context.Context, ownerID int64) ([]models.Photo, error) {
	return s.store.ListPhotosByOwner(ctx, ownerID)
}

// StatsForPhoto aggregates the raters of an owned photo by the demographics
// of each rater's latest photo. Raters without a photo only count in Total.
func (s *PhotoService) StatsForPhoto(ctx context.Context, ownerID, photoID int64) (*models.PhotoStats, error) {
	photo, err := s.store.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo.UserID != ownerID {
		return nil, common.ErrNotFound
	}

	profiles, err := s.store.RaterProfiles(ctx, photoID)
	if err != nil {
		return nil, err
	}

	stats := &models.PhotoStats{Total: len(profiles)}
	for _, p := range profiles {
		if !p.HasPhoto {
			continue
		}
		stats.Add(p.Gender, p.Age)
	}
	return stats, nil
}
