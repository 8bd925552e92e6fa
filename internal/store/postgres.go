package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"photo-rating/internal/common"
	"photo-rating/internal/db"
	"photo-rating/internal/dbx"
	"photo-rating/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	// ratingAttempts bounds the retries of a rating transaction aborted by
	// a deadlock or serialization failure.
	ratingAttempts = 3
)

const photoColumns = `id, user_id, file_path, gender, age, is_active, created_at`

// PostgresStore implements Store on top of database/sql with the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := db.Ping(ctx, s.db); err != nil {
		return wrapErr("ping", err)
	}
	return nil
}

// wrapErr maps driver errors onto the common taxonomy.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", op, common.ErrUserExists)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, common.ErrNotFound)
		case pgCheckViolation:
			return fmt.Errorf("%s: %w: %s", op, common.ErrInvalidArgument, pgErr.ConstraintName)
		}
	}
	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%s: %w: %v", op, common.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*models.Photo, error) {
	var p models.Photo
	if err := row.Scan(&p.ID, &p.UserID, &p.FilePath, &p.Gender, &p.Age, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string, initialPoints int) (*models.User, error) {
	query := `INSERT INTO users (email, password_hash, points) VALUES ($1, $2, $3) RETURNING id, email, points, created_at`

	u := models.User{PasswordHash: passwordHash}
	err := s.db.QueryRowContext(ctx, query, email, passwordHash, initialPoints).Scan(&u.ID, &u.Email, &u.Points, &u.CreatedAt)
	if err != nil {
		return nil, wrapErr("create user", err)
	}
	return &u, nil
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT id, email, password_hash, points, created_at FROM users WHERE ` + where

	var u models.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Points, &u.CreatedAt)
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `lower(email) = lower($1)`, email)
}

func (s *PostgresStore) CreatePhoto(ctx context.Context, p *models.Photo) (*models.Photo, error) {
	query := `INSERT INTO photos (user_id, file_path, gender, age, is_active) VALUES ($1, $2, $3, $4, $5) RETURNING ` + photoColumns

	photo, err := scanPhoto(s.db.QueryRowContext(ctx, query, p.UserID, p.FilePath, string(p.Gender), p.Age, p.IsActive))
	if err != nil {
		return nil, wrapErr("create photo", err)
	}
	return photo, nil
}

func (s *PostgresStore) GetPhoto(ctx context.Context, id int64) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`

	photo, err := scanPhoto(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapErr("get photo", err)
	}
	return photo, nil
}

func (s *PostgresStore) ListPhotosByOwner(ctx context.Context, ownerID int64) ([]models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE user_id = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, wrapErr("list photos", err)
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, wrapErr("list photos", err)
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list photos", err)
	}
	return photos, nil
}

// FindPhotoToRate picks any active photo that the rater neither owns nor has
// already rated. No ordering is guaranteed.
func (s *PostgresStore) FindPhotoToRate(ctx context.Context, raterID int64, filter models.PhotoFilter) (*models.Photo, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + photoColumns + ` FROM photos p
		WHERE p.user_id <> $1
		AND p.is_active
		AND NOT EXISTS (SELECT 1 FROM ratings r WHERE r.photo_id = p.id AND r.rater_id = $1)`)
	args := []any{raterID}

	if filter.Gender != nil {
		args = append(args, string(*filter.Gender))
		b.WriteString(` AND p.gender = $` + strconv.Itoa(len(args)))
	}
	if min, max, ok := filter.AgeRange(); ok {
		args = append(args, min, max)
		fmt.Fprintf(&b, ` AND p.age BETWEEN $%d AND $%d`, len(args)-1, len(args))
	}
	b.WriteString(` LIMIT 1`)

	photo, err := scanPhoto(s.db.QueryRowContext(ctx, b.String(), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find photo to rate", err)
	}
	return photo, nil
}

// SetPhotoActive locks the photo, then share-locks the owner's row so that a
// concurrent rating debit cannot interleave between the balance check and
// the update.
func (s *PostgresStore) SetPhotoActive(ctx context.Context, ownerID, photoID int64, active bool) (*models.Photo, error) {
	var photo *models.Photo
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM photos WHERE id = $1 AND user_id = $2 FOR UPDATE`, photoID, ownerID).Scan(&id)
		if err != nil {
			return err
		}

		if active {
			var points int
			if err := tx.QueryRowContext(ctx, `SELECT points FROM users WHERE id = $1 FOR SHARE`, ownerID).Scan(&points); err != nil {
				return err
			}
			if points <= 0 {
				return common.ErrInsufficientBalance
			}
		}

		photo, err = scanPhoto(tx.QueryRowContext(ctx, `UPDATE photos SET is_active = $2 WHERE id = $1 RETURNING `+photoColumns, photoID, active))
		return err
	})
	if errors.Is(err, common.ErrInsufficientBalance) {
		return nil, err
	}
	if err != nil {
		return nil, wrapErr("set photo active", err)
	}
	return photo, nil
}

func (s *PostgresStore) HasRated(ctx context.Context, photoID, raterID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ratings WHERE photo_id = $1 AND rater_id = $2)`, photoID, raterID).Scan(&exists)
	if err != nil {
		return false, wrapErr("has rated", err)
	}
	return exists, nil
}

// RecordRating inserts into the ledger and transfers one point in a single
// transaction. The ledger's primary key arbitrates concurrent attempts on the
// same pair; user rows are locked in id order to keep opposing transfers from
// deadlocking.
func (s *PostgresStore) RecordRating(ctx context.Context, photoID, raterID int64) (*models.RatingResult, error) {
	var (
		res *models.RatingResult
		err error
	)
	for attempt := 1; attempt <= ratingAttempts; attempt++ {
		res, err = s.recordRating(ctx, photoID, raterID)
		if err == nil || !retryable(err) {
			break
		}
	}

	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, common.ErrSelfRating), errors.Is(err, common.ErrAlreadyRated):
		return nil, err
	default:
		return nil, wrapErr("record rating", err)
	}
}

func (s *PostgresStore) recordRating(ctx context.Context, photoID, raterID int64) (*models.RatingResult, error) {
	res := &models.RatingResult{PhotoID: photoID, RaterID: raterID}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := tx.QueryRowContext(ctx, `SELECT user_id FROM photos WHERE id = $1`, photoID).Scan(&res.OwnerID); err != nil {
			return err
		}
		if res.OwnerID == raterID {
			return common.ErrSelfRating
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO ratings (photo_id, rater_id) VALUES ($1, $2) ON CONFLICT (photo_id, rater_id) DO NOTHING`,
			photoID, raterID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return common.ErrAlreadyRated
		}

		locked, err := tx.QueryContext(ctx, `SELECT id FROM users WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`, raterID, res.OwnerID)
		if err != nil {
			return err
		}
		var lockedCount int
		for locked.Next() {
			lockedCount++
		}
		locked.Close()
		if err := locked.Err(); err != nil {
			return err
		}
		if lockedCount != 2 {
			return sql.ErrNoRows
		}

		rows, err := tx.QueryContext(ctx,
			`UPDATE users SET points = points + CASE WHEN id = $1 THEN 1 ELSE -1 END
			WHERE id IN ($1, $2) RETURNING id, points`,
			raterID, res.OwnerID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var points int
			if err := rows.Scan(&id, &points); err != nil {
				return err
			}
			if id == raterID {
				res.RaterPoints = points
			} else {
				res.OwnerPoints = points
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RaterProfiles attributes each rating to the rater's most recent photo.
func (s *PostgresStore) RaterProfiles(ctx context.Context, photoID int64) ([]models.RaterProfile, error) {
	query := `SELECT r.rater_id, lp.gender, lp.age
		FROM ratings r
		LEFT JOIN LATERAL (
			SELECT p.gender, p.age FROM photos p
			WHERE p.user_id = r.rater_id
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT 1
		) lp ON TRUE
		WHERE r.photo_id = $1
		ORDER BY r.created_at, r.rater_id`

	var profiles []models.RaterProfile
	err := db.WithConnection(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		rows, err := conn.QueryContext(ctx, query, photoID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				prof   models.RaterProfile
				gender sql.NullString
				age    sql.NullInt64
			)
			if err := rows.Scan(&prof.RaterID, &gender, &age); err != nil {
				return err
			}
			if gender.Valid {
				prof.HasPhoto = true
				prof.Gender = models.Gender(gender.String)
				prof.Age = int(age.Int64)
			}
			profiles = append(profiles, prof)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapErr("rater profiles", err)
	}
	return profiles, nil
}
