package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/platform/postgres"
	"github.com/phrazzld/feedcore/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, func() *postgresStores) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return mock, func() *postgresStores {
		return &postgresStores{
			posts:    postgres.NewPostgresPostStore(db, nil),
			comments: postgres.NewPostgresCommentStore(db, nil),
			likes:    postgres.NewPostgresLikeStore(db, nil),
			users:    postgres.NewPostgresUserStore(db, nil),
			failures: postgres.NewPostgresFailureStore(db, nil),
			jobs:     postgres.NewPostgresJobStore(db),
		}
	}
}

type postgresStores struct {
	posts    *postgres.PostgresPostStore
	comments *postgres.PostgresCommentStore
	likes    *postgres.PostgresLikeStore
	users    *postgres.PostgresUserStore
	failures *postgres.PostgresFailureStore
	jobs     *postgres.PostgresJobStore
}

func TestPostStore_CreateAndGet(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)
	s := stores().posts
	ctx := context.Background()

	post, err := domain.NewPost(uuid.New(), "hello", []string{"a.jpg"})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO posts").
		WithArgs(post.ID, post.UserID, "hello", []byte(`["a.jpg"]`), post.CreatedAt, post.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Create(ctx, post))

	rows := sqlmock.NewRows([]string{"id", "user_id", "description", "photos", "created_at", "updated_at"}).
		AddRow(post.ID.String(), post.UserID.String(), "hello", []byte(`["a.jpg"]`), post.CreatedAt, post.UpdatedAt)
	mock.ExpectQuery("SELECT id, user_id, description, photos").WithArgs(post.ID).WillReturnRows(rows)

	got, err := s.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, []string{"a.jpg"}, got.Photos)
}

func TestPostStore_CreateRejectsInvalid(t *testing.T) {
	t.Parallel()
	_, stores := newMock(t)

	err := stores().posts.Create(context.Background(), &domain.Post{ID: uuid.New(), UserID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrPostWithoutContent)
}

func TestPostStore_NotFound(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)
	s := stores().posts
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery("SELECT id, user_id, description, photos").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := s.GetByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrPostNotFound)

	mock.ExpectExec("DELETE FROM posts").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Delete(ctx, id), store.ErrPostNotFound)

	mock.ExpectQuery("SELECT EXISTS").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	ok, err := s.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommentStore_DeleteRemovesReplies(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM comments WHERE id = \$1 OR parent_id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := stores().comments.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestCommentStore_UpdateTextNotFound(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE comments SET comment").
		WithArgs("edited", now, id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := stores().comments.UpdateText(context.Background(), id, "edited", now)
	assert.ErrorIs(t, err, store.ErrCommentNotFound)

	err = stores().comments.UpdateText(context.Background(), id, "", now)
	assert.ErrorIs(t, err, domain.ErrEmptyCommentText)
}

func TestCommentStore_ListTopLevel(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)
	postID, userID, cursor := uuid.New(), uuid.New(), uuid.New()
	parent := uuid.New()
	now := time.Now().UTC()

	cols := []string{"id", "post_id", "user_id", "parent_id", "comment", "created_at", "updated_at"}
	mock.ExpectQuery(`\(created_at, id\) < \(SELECT created_at, id FROM comments WHERE id = \$2\)`).
		WithArgs(postID, cursor, 2).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(uuid.NewString(), postID.String(), userID.String(), nil, "b", now, now).
			AddRow(uuid.NewString(), postID.String(), userID.String(), parent.String(), "a", now, now))

	got, err := stores().comments.ListTopLevel(context.Background(), postID, &cursor, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].ParentID)
	require.NotNil(t, got[1].ParentID)
	assert.Equal(t, parent, *got[1].ParentID)
}

func TestLikeStore_DuplicateMapsToAlreadyLiked(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)

	like, err := domain.NewLike(uuid.New(), uuid.New(), time.Time{})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO likes").
		WithArgs(like.ID, like.PostID, like.UserID, like.CreatedAt).
		WillReturnError(newPgError("23505"))

	err = stores().likes.Create(context.Background(), like)
	assert.ErrorIs(t, err, store.ErrAlreadyLiked)
	assert.True(t, store.IsDuplicateError(err))
}

func TestLikeStore_GetAndDeleteMissing(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)
	s := stores().likes
	postID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT id, post_id, user_id, created_at").WithArgs(postID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := s.Get(context.Background(), postID, userID)
	assert.ErrorIs(t, err, store.ErrLikeNotFound)

	mock.ExpectExec("DELETE FROM likes").WithArgs(postID, userID).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Delete(context.Background(), postID, userID), store.ErrLikeNotFound)
}

func TestLikeStore_ListLikersOrdering(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)
	postID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`ORDER BY created_at, user_id`).WithArgs(postID, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "user_id", "created_at"}).
			AddRow(uuid.NewString(), postID.String(), uuid.NewString(), now))

	likes, err := stores().likes.ListLikers(context.Background(), postID, nil, 10)
	require.NoError(t, err)
	assert.Len(t, likes, 1)
}

func TestUserStore_GetByIDsEmpty(t *testing.T) {
	t.Parallel()
	_, stores := newMock(t)

	users, err := stores().users.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFailureStore_AppendAndList(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)
	s := stores().failures

	rec := &domain.FailureRecord{
		JobID:        "job-1",
		JobName:      "add",
		QueueName:    "DEV:comment",
		Data:         json.RawMessage(`{"text":"hi"}`),
		Error:        "boom",
		FailedReason: "boom",
		AttemptsMade: 3,
	}
	mock.ExpectExec("INSERT INTO failed_jobs").
		WithArgs(sqlmock.AnyArg(), "job-1", "add", "DEV:comment", []byte(`{"text":"hi"}`), "boom", "boom",
			3, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Append(context.Background(), rec))
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.FailedAt.IsZero())

	mock.ExpectQuery("FROM failed_jobs").WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "job_id", "job_name", "queue_name", "data", "error", "failed_reason",
			"attempts_made", "enqueued_at", "processed_on", "failed_at",
		}).AddRow(rec.ID.String(), domain.WorkerFaultJobID, domain.WorkerFaultJobName, "DEV:post", nil,
			"loop", "loop", 0, nil, nil, rec.FailedAt))

	got, err := s.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsWorkerFault())
	assert.Nil(t, got[0].EnqueuedAt)
}

func TestJobStore_Record(t *testing.T) {
	t.Parallel()
	mock, stores := newMock(t)
	enqueued := time.Now().UTC()

	mock.ExpectExec("INSERT INTO job_audit").
		WithArgs("job-9", "DEV:post", "create", "completed", 1, []byte(`{}`), "", enqueued, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := stores().jobs.Record(context.Background(), &domain.JobRecord{
		JobID:      "job-9",
		QueueName:  "DEV:post",
		JobType:    "create",
		Outcome:    domain.JobCompleted,
		Attempts:   1,
		Payload:    json.RawMessage(`{}`),
		EnqueuedAt: enqueued,
	})
	require.NoError(t, err)
}
