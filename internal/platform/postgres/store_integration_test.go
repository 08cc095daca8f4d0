//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/platform/postgres"
	"github.com/phrazzld/feedcore/internal/store"
	"github.com/phrazzld/feedcore/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, db store.DBTX, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name, "Tester", "", "")
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresUserStore(db, nil).Create(context.Background(), u))
	return u
}

func seedPost(t *testing.T, db store.DBTX, userID uuid.UUID) *domain.Post {
	t.Helper()
	p, err := domain.NewPost(userID, "post body", nil)
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresPostStore(db, nil).Create(context.Background(), p))
	return p
}

func TestPostgresPostStore_RoundTrip(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		posts := postgres.NewPostgresPostStore(db, nil).WithTx(tx)

		u := seedUser(t, tx, "Ada")
		p, err := domain.NewPost(u.ID, "first", []string{"x.png"})
		require.NoError(t, err)
		require.NoError(t, posts.Create(ctx, p))

		got, err := posts.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Description, got.Description)
		assert.Equal(t, p.Photos, got.Photos)

		desc := "edited"
		domain.PostPatch{Description: &desc}.Apply(got)
		require.NoError(t, posts.Update(ctx, got))

		require.NoError(t, posts.Delete(ctx, p.ID))
		_, err = posts.GetByID(ctx, p.ID)
		assert.ErrorIs(t, err, store.ErrPostNotFound)
	})
}

func TestPostgresCommentStore_CascadeAndPaging(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		comments := postgres.NewPostgresCommentStore(db, nil).WithTx(tx)
		u := seedUser(t, tx, "Grace")
		p := seedPost(t, tx, u.ID)

		base := time.Now().UTC().Truncate(time.Microsecond)
		var top []*domain.Comment
		for i := 0; i < 5; i++ {
			c, err := domain.NewComment(p.ID, u.ID, nil, "c")
			require.NoError(t, err)
			c.CreatedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, comments.Create(ctx, c))
			top = append(top, c)
		}
		reply, err := domain.NewComment(p.ID, u.ID, &top[0].ID, "reply")
		require.NoError(t, err)
		require.NoError(t, comments.Create(ctx, reply))

		page, err := comments.ListTopLevel(ctx, p.ID, nil, 3)
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, top[4].ID, page[0].ID)

		next, err := comments.ListTopLevel(ctx, p.ID, &page[2].ID, 3)
		require.NoError(t, err)
		require.Len(t, next, 2)
		assert.Equal(t, top[0].ID, next[1].ID)

		unknown := uuid.New()
		empty, err := comments.ListTopLevel(ctx, p.ID, &unknown, 3)
		require.NoError(t, err)
		assert.Empty(t, empty)

		latest, err := comments.LatestReplies(ctx, []uuid.UUID{top[0].ID, top[1].ID})
		require.NoError(t, err)
		require.Contains(t, latest, top[0].ID)
		assert.NotContains(t, latest, top[1].ID)

		n, err := comments.Delete(ctx, top[0].ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		_, err = comments.GetByID(ctx, reply.ID)
		assert.ErrorIs(t, err, store.ErrCommentNotFound)
	})
}

func TestPostgresLikeStore_UniqueAndLikers(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		likes := postgres.NewPostgresLikeStore(tx, nil)
		owner := seedUser(t, tx, "Owner")
		p := seedPost(t, tx, owner.ID)

		at := time.Now().UTC().Truncate(time.Microsecond)
		var likers []uuid.UUID
		for i := 0; i < 4; i++ {
			u := seedUser(t, tx, "Liker")
			l, err := domain.NewLike(p.ID, u.ID, at) // identical timestamps
			require.NoError(t, err)
			require.NoError(t, likes.Create(ctx, l))
			likers = append(likers, u.ID)
		}

		dup, err := domain.NewLike(p.ID, likers[0], at)
		require.NoError(t, err)
		assert.ErrorIs(t, likes.Create(ctx, dup), store.ErrAlreadyLiked)

		count, err := likes.Count(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)

		seen := map[uuid.UUID]int{}
		var cursor *uuid.UUID
		for {
			page, err := likes.ListLikers(ctx, p.ID, cursor, 3)
			require.NoError(t, err)
			if len(page) == 0 {
				break
			}
			for _, l := range page {
				seen[l.UserID]++
			}
			last := page[len(page)-1].UserID
			cursor = &last
		}
		assert.Len(t, seen, 4)
		for _, n := range seen {
			assert.Equal(t, 1, n)
		}

		require.NoError(t, likes.Delete(ctx, p.ID, likers[0]))
		assert.ErrorIs(t, likes.Delete(ctx, p.ID, likers[0]), store.ErrLikeNotFound)
	})
}

func TestPostgresUserStore_GetByIDs(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		a := seedUser(t, tx, "A")
		b := seedUser(t, tx, "B")

		users, err := postgres.NewPostgresUserStore(tx, nil).
			GetByIDs(context.Background(), []uuid.UUID{b.ID, a.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})
}

func TestPostgresFailureStore_AppendOnly(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		failures := postgres.NewPostgresFailureStore(tx, nil)

		require.NoError(t, failures.Append(ctx, &domain.FailureRecord{
			JobID: "1", JobName: "add", QueueName: "TEST:comment",
			Data: []byte(`{"text":"x"}`), Error: "boom", AttemptsMade: 3,
		}))
		require.NoError(t, failures.Append(ctx, &domain.FailureRecord{
			JobID: domain.WorkerFaultJobID, JobName: domain.WorkerFaultJobName, QueueName: "TEST:comment",
			Error: "loop",
		}))

		recs, err := failures.ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.True(t, recs[0].IsWorkerFault())
		assert.JSONEq(t, `{"text":"x"}`, string(recs[1].Data))
	})
}
