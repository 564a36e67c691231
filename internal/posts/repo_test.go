package posts

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPostsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	posts := `
CREATE TABLE IF NOT EXISTS posts (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  content TEXT NOT NULL,
  publish_date DATETIME NOT NULL,
  location TEXT NOT NULL,
  department TEXT NOT NULL,
  category TEXT NOT NULL,
  link TEXT,
  is_urgent INTEGER NOT NULL DEFAULT 0,
  likes INTEGER NOT NULL DEFAULT 0,
  comments INTEGER NOT NULL DEFAULT 0,
  has_image INTEGER NOT NULL DEFAULT 0,
  image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(posts).Error)
	return db
}

func newCandidate(t *testing.T, title string) Candidate {
	t.Helper()

	return Candidate{
		Title:       title,
		Content:     "content for " + title,
		PublishDate: time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
		Location:    "Budapest",
		Department:  "Engineering",
		Category:    "update",
	}
}

func TestCandidateIDIsStable(t *testing.T) {
	a := newCandidate(t, "stable-id")
	b := newCandidate(t, "stable-id")
	assert.Equal(t, a.ID(), b.ID())

	parts := strings.SplitN(a.ID(), "-", 2)
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 8)
	assert.Equal(t, fmt.Sprintf("%d", a.PublishDate.Unix()), parts[1])
}

func TestCandidateIDChangesWithContent(t *testing.T) {
	a := newCandidate(t, "divergent-id")
	b := a
	b.Content = "different body"
	assert.NotEqual(t, a.ID(), b.ID())

	c := a
	c.Likes = 99
	c.Comments = 4
	assert.Equal(t, a.ID(), c.ID(), "engagement counters must not affect the id")
}

func TestInsertNewReturnsOnlyUnseen(t *testing.T) {
	db := setupPostsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first := newCandidate(t, "insert-delta-a")
	second := newCandidate(t, "insert-delta-b")

	inserted, err := repo.InsertNew(ctx, []Candidate{first, second}, now)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.Equal(t, first.ID(), inserted[0].ID)
	assert.Equal(t, second.ID(), inserted[1].ID)

	third := newCandidate(t, "insert-delta-c")
	inserted, err = repo.InsertNew(ctx, []Candidate{first, second, third}, now)
	require.NoError(t, err)
	require.Len(t, inserted, 1)
	assert.Equal(t, third.ID(), inserted[0].ID)
}

func TestInsertNewRefreshesEngagementSilently(t *testing.T) {
	db := setupPostsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	candidate := newCandidate(t, "engagement-refresh")
	inserted, err := repo.InsertNew(ctx, []Candidate{candidate}, created)
	require.NoError(t, err)
	require.Len(t, inserted, 1)

	bumped := candidate
	bumped.Likes = 12
	bumped.Comments = 3
	later := created.Add(time.Hour)

	delta, err := repo.InsertNew(ctx, []Candidate{bumped}, later)
	require.NoError(t, err)
	assert.Empty(t, delta, "refreshed post must not re-enter the delta")

	stored, err := repo.GetByID(ctx, candidate.ID())
	require.NoError(t, err)
	assert.Equal(t, 12, stored.Likes)
	assert.Equal(t, 3, stored.Comments)
	assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))
}

func TestInsertNewSkipsDuplicateCandidatesInBatch(t *testing.T) {
	db := setupPostsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	candidate := newCandidate(t, "intra-batch-dup")
	inserted, err := repo.InsertNew(ctx, []Candidate{candidate, candidate}, time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, inserted, 1)
}

func TestDistinctLocations(t *testing.T) {
	db := setupPostsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	a := newCandidate(t, "locations-a")
	a.Location = "Szeged"
	b := newCandidate(t, "locations-b")
	b.Location = "Szeged"
	c := newCandidate(t, "locations-c")
	c.Location = ""

	_, err := repo.InsertNew(ctx, []Candidate{a, b, c}, time.Now().UTC())
	require.NoError(t, err)

	locations, err := repo.DistinctLocations(ctx)
	require.NoError(t, err)
	assert.Contains(t, locations, "Szeged")
	assert.NotContains(t, locations, "")
}

func TestListLatestOrdersByPublishDate(t *testing.T) {
	db := setupPostsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	older := newCandidate(t, "latest-older")
	older.PublishDate = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := newCandidate(t, "latest-newer")
	newer.PublishDate = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	_, err := repo.InsertNew(ctx, []Candidate{older, newer}, time.Now().UTC())
	require.NoError(t, err)

	latest, err := repo.ListLatest(ctx, 50)
	require.NoError(t, err)
	require.NotEmpty(t, latest)

	var olderIdx, newerIdx int = -1, -1
	for i, post := range latest {
		if post.ID == older.ID() {
			olderIdx = i
		}
		if post.ID == newer.ID() {
			newerIdx = i
		}
	}
	require.NotEqual(t, -1, olderIdx)
	require.NotEqual(t, -1, newerIdx)
	assert.Less(t, newerIdx, olderIdx)
}
