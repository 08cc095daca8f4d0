package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/store"
)

const commentColumns = `id, post_id, user_id, parent_id, comment, created_at, updated_at`

// PostgresCommentStore implements the store.CommentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCommentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCommentStore creates a new PostgreSQL implementation of the CommentStore interface.
func NewPostgresCommentStore(db store.DBTX, logger *slog.Logger) *PostgresCommentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCommentStore{
		db:     db,
		logger: logger.With(slog.String("component", "comment_store")),
	}
}

// Ensure PostgresCommentStore implements store.CommentStore interface
var _ store.CommentStore = (*PostgresCommentStore)(nil)

// WithTx implements store.CommentStore.WithTx
func (s *PostgresCommentStore) WithTx(tx *sql.Tx) store.CommentStore {
	return &PostgresCommentStore{db: tx, logger: s.logger}
}

// Create implements store.CommentStore.Create
// Returns store.ErrInvalidEntity if the post, user or parent does not exist.
func (s *PostgresCommentStore) Create(ctx context.Context, c *domain.Comment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := c.Validate(); err != nil {
		log.Warn("comment validation failed during create",
			slog.String("error", err.Error()),
			slog.String("comment_id", c.ID.String()))
		return err
	}

	query := `
		INSERT INTO comments (` + commentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.PostID, c.UserID, nullUUID(c.ParentID), c.Text, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		log.Error("failed to create comment",
			slog.String("error", err.Error()),
			slog.String("comment_id", c.ID.String()),
			slog.String("post_id", c.PostID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.CommentStore.GetByID
func (s *PostgresCommentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCommentNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get comment by ID",
			slog.String("error", err.Error()),
			slog.String("comment_id", id.String()))
		return nil, MapError(err)
	}
	return c, nil
}

// UpdateText implements store.CommentStore.UpdateText
func (s *PostgresCommentStore) UpdateText(ctx context.Context, id uuid.UUID, text string, updatedAt time.Time) error {
	if err := domain.ValidateCommentText(text); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE comments SET comment = $1, updated_at = $2 WHERE id = $3`,
		text, updatedAt, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update comment",
			slog.String("error", err.Error()),
			slog.String("comment_id", id.String()))
		return MapError(err)
	}

	_, err = CheckRowsAffected(result, store.ErrCommentNotFound)
	return err
}

// Delete implements store.CommentStore.Delete
// The comment and its direct replies are removed in one statement; deeper
// descendants go through ON DELETE CASCADE.
func (s *PostgresCommentStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 OR parent_id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete comment",
			slog.String("error", err.Error()),
			slog.String("comment_id", id.String()))
		return 0, MapError(err)
	}
	return CheckRowsAffected(result, store.ErrCommentNotFound)
}

// ListTopLevel implements store.CommentStore.ListTopLevel
func (s *PostgresCommentStore) ListTopLevel(
	ctx context.Context,
	postID uuid.UUID,
	after *uuid.UUID,
	limit int,
) ([]*domain.Comment, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if after == nil {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+commentColumns+`
			FROM comments
			WHERE post_id = $1 AND parent_id IS NULL
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, postID, limit)
	} else {
		// An unknown cursor makes the row comparison NULL, which matches nothing.
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+commentColumns+`
			FROM comments
			WHERE post_id = $1 AND parent_id IS NULL
			  AND (created_at, id) < (SELECT created_at, id FROM comments WHERE id = $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, postID, *after, limit)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list comments",
			slog.String("error", err.Error()),
			slog.String("post_id", postID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	comments := make([]*domain.Comment, 0, limit)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, MapError(err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return comments, nil
}

// LatestReplies implements store.CommentStore.LatestReplies
func (s *PostgresCommentStore) LatestReplies(
	ctx context.Context,
	parentIDs []uuid.UUID,
) (map[uuid.UUID]*domain.Comment, error) {
	replies := make(map[uuid.UUID]*domain.Comment, len(parentIDs))
	if len(parentIDs) == 0 {
		return replies, nil
	}

	ids := make([]string, len(parentIDs))
	for i, id := range parentIDs {
		ids[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (parent_id) `+commentColumns+`
		FROM comments
		WHERE parent_id = ANY(string_to_array($1, ',')::uuid[])
		ORDER BY parent_id, created_at DESC, id DESC`, strings.Join(ids, ","))
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, MapError(err)
		}
		replies[*c.ParentID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return replies, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (*domain.Comment, error) {
	var c domain.Comment
	var parent uuid.NullUUID
	if err := row.Scan(&c.ID, &c.PostID, &c.UserID, &parent, &c.Text, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.UUID
		c.ParentID = &p
	}
	return &c, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil || *id == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
