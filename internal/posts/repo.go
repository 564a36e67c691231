package posts

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/blogwatch/backend/pkg/db/models"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
)

// Repository exposes persistence helpers for ingested posts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertNew(ctx context.Context, candidates []Candidate, now time.Time) ([]models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListLatest(ctx context.Context, limit int) ([]models.Post, error)
	DistinctLocations(ctx context.Context) ([]string, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a posts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// InsertNew persists the candidates that have not been seen before and
// returns them in candidate order. A candidate whose id already exists only
// refreshes the engagement counters and image fields of the stored row; it is
// not part of the returned delta.
func (r *repositoryImpl) InsertNew(ctx context.Context, candidates []Candidate, now time.Time) ([]models.Post, error) {
	inserted := make([]models.Post, 0, len(candidates))
	seen := map[string]bool{}

	for _, candidate := range candidates {
		id := candidate.ID()
		if seen[id] {
			continue
		}
		seen[id] = true

		var existing models.Post
		err := r.db.WithContext(ctx).Where("id = ?", id).First(&existing).Error
		switch {
		case err == nil:
			if err := r.refresh(ctx, &existing, candidate, now); err != nil {
				return nil, err
			}
			continue
		case err != gorm.ErrRecordNotFound:
			return nil, err
		}

		post := models.Post{
			ID:          id,
			Title:       candidate.Title,
			Content:     candidate.Content,
			PublishDate: candidate.PublishDate.UTC(),
			Location:    candidate.Location,
			Department:  candidate.Department,
			Category:    candidate.Category,
			Link:        candidate.Link,
			IsUrgent:    candidate.IsUrgent,
			Likes:       candidate.Likes,
			Comments:    candidate.Comments,
			HasImage:    candidate.HasImage,
			ImageURL:    candidate.ImageURL,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := r.db.WithContext(ctx).Create(&post).Error; err != nil {
			return nil, err
		}
		inserted = append(inserted, post)
	}
	return inserted, nil
}

func (r *repositoryImpl) refresh(ctx context.Context, existing *models.Post, candidate Candidate, now time.Time) error {
	if existing.Likes == candidate.Likes &&
		existing.Comments == candidate.Comments &&
		existing.HasImage == candidate.HasImage &&
		equalStringPtr(existing.ImageURL, candidate.ImageURL) {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", existing.ID).
		UpdateColumns(map[string]any{
			"likes":      candidate.Likes,
			"comments":   candidate.Comments,
			"has_image":  candidate.HasImage,
			"image_url":  candidate.ImageURL,
			"updated_at": now,
		}).Error
}

func (r *repositoryImpl) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, err
	}
	return &post, nil
}

func (r *repositoryImpl) ListLatest(ctx context.Context, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = 25
	}
	var out []models.Post
	if err := r.db.WithContext(ctx).
		Order("publish_date DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repositoryImpl) DistinctLocations(ctx context.Context) ([]string, error) {
	var locations []string
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Distinct("location").
		Where("location <> ''").
		Order("location ASC").
		Pluck("location", &locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
