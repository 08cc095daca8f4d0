package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/store"
)

// PostgresLikeStore implements the store.LikeStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLikeStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLikeStore creates a new PostgreSQL implementation of the LikeStore interface.
func NewPostgresLikeStore(db store.DBTX, logger *slog.Logger) *PostgresLikeStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLikeStore{
		db:     db,
		logger: logger.With(slog.String("component", "like_store")),
	}
}

// Ensure PostgresLikeStore implements store.LikeStore interface
var _ store.LikeStore = (*PostgresLikeStore)(nil)

// Create implements store.LikeStore.Create
// Returns store.ErrAlreadyLiked when likes_user_post_key is violated.
func (s *PostgresLikeStore) Create(ctx context.Context, like *domain.Like) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := like.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO likes (id, post_id, user_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		like.ID, like.PostID, like.UserID, like.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("like already exists",
				slog.String("post_id", like.PostID.String()),
				slog.String("user_id", like.UserID.String()))
		} else {
			log.Error("failed to create like",
				slog.String("error", err.Error()),
				slog.String("post_id", like.PostID.String()),
				slog.String("user_id", like.UserID.String()))
		}
		return MapUniqueViolation(err, store.ErrAlreadyLiked)
	}
	return nil
}

// Get implements store.LikeStore.Get
func (s *PostgresLikeStore) Get(ctx context.Context, postID, userID uuid.UUID) (*domain.Like, error) {
	var l domain.Like
	err := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, user_id, created_at
		FROM likes
		WHERE post_id = $1 AND user_id = $2`, postID, userID).
		Scan(&l.ID, &l.PostID, &l.UserID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrLikeNotFound
		}
		return nil, MapError(err)
	}
	return &l, nil
}

// Delete implements store.LikeStore.Delete
func (s *PostgresLikeStore) Delete(ctx context.Context, postID, userID uuid.UUID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete like",
			slog.String("error", err.Error()),
			slog.String("post_id", postID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}
	_, err = CheckRowsAffected(result, store.ErrLikeNotFound)
	return err
}

// Count implements store.LikeStore.Count
func (s *PostgresLikeStore) Count(ctx context.Context, postID uuid.UUID) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID).Scan(&n); err != nil {
		return 0, MapError(err)
	}
	return n, nil
}

// ListLikers implements store.LikeStore.ListLikers
func (s *PostgresLikeStore) ListLikers(
	ctx context.Context,
	postID uuid.UUID,
	after *uuid.UUID,
	limit int,
) ([]*domain.Like, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if after == nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, post_id, user_id, created_at
			FROM likes
			WHERE post_id = $1
			ORDER BY created_at, user_id
			LIMIT $2`, postID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, post_id, user_id, created_at
			FROM likes
			WHERE post_id = $1
			  AND (created_at, user_id) > (
				SELECT created_at, user_id FROM likes WHERE post_id = $1 AND user_id = $2)
			ORDER BY created_at, user_id
			LIMIT $3`, postID, *after, limit)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list likers",
			slog.String("error", err.Error()),
			slog.String("post_id", postID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	likes := make([]*domain.Like, 0, limit)
	for rows.Next() {
		var l domain.Like
		if err := rows.Scan(&l.ID, &l.PostID, &l.UserID, &l.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		likes = append(likes, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return likes, nil
}
