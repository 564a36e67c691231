package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blogwatch/backend/pkg/db/models"
)

// Repository exposes persistence for settings rows and keyword mappings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetRow(ctx context.Context, userKey string) (*models.NotificationSetting, error)
	UpsertRow(ctx context.Context, row *models.NotificationSetting) error
	ListRows(ctx context.Context) ([]models.NotificationSetting, error)
	ReplaceKeywords(ctx context.Context, userKey string, keywords []string) error
	UnionGlobalKeywords(ctx context.Context, keywords []string) error
	UserKeywords(ctx context.Context, userKey string) ([]string, error)
	KeywordsByUser(ctx context.Context) (map[string][]string, error)
	AllKeywords(ctx context.Context) ([]string, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) GetRow(ctx context.Context, userKey string) (*models.NotificationSetting, error) {
	var row models.NotificationSetting
	err := r.db.WithContext(ctx).Where("user_key = ?", userKey).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) UpsertRow(ctx context.Context, row *models.NotificationSetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_key"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

func (r *repositoryImpl) ListRows(ctx context.Context) ([]models.NotificationSetting, error) {
	var rows []models.NotificationSetting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) ReplaceKeywords(ctx context.Context, userKey string, keywords []string) error {
	if err := r.db.WithContext(ctx).
		Where("user_key = ?", userKey).
		Delete(&models.UserKeyword{}).Error; err != nil {
		return err
	}
	if len(keywords) == 0 {
		return nil
	}
	rows := make([]models.UserKeyword, 0, len(keywords))
	for _, kw := range keywords {
		rows = append(rows, models.UserKeyword{UserKey: userKey, Keyword: kw})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repositoryImpl) UnionGlobalKeywords(ctx context.Context, keywords []string) error {
	if len(keywords) == 0 {
		return nil
	}
	rows := make([]models.Keyword, 0, len(keywords))
	for _, kw := range keywords {
		rows = append(rows, models.Keyword{Keyword: kw})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *repositoryImpl) UserKeywords(ctx context.Context, userKey string) ([]string, error) {
	var keywords []string
	if err := r.db.WithContext(ctx).
		Model(&models.UserKeyword{}).
		Where("user_key = ?", userKey).
		Order("keyword ASC").
		Pluck("keyword", &keywords).Error; err != nil {
		return nil, err
	}
	return keywords, nil
}

func (r *repositoryImpl) KeywordsByUser(ctx context.Context) (map[string][]string, error) {
	var rows []models.UserKeyword
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := map[string][]string{}
	for _, row := range rows {
		out[row.UserKey] = append(out[row.UserKey], row.Keyword)
	}
	return out, nil
}

func (r *repositoryImpl) AllKeywords(ctx context.Context) ([]string, error) {
	var keywords []string
	if err := r.db.WithContext(ctx).
		Model(&models.Keyword{}).
		Order("keyword ASC").
		Pluck("keyword", &keywords).Error; err != nil {
		return nil, err
	}
	return keywords, nil
}
