package settings

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/blogwatch/backend/pkg/db/models"
	dbtypes "github.com/blogwatch/backend/pkg/db/types"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes merged settings reads and validated partial updates.
type Service interface {
	Get(ctx context.Context, userKey string) (Settings, error)
	GetAll(ctx context.Context) ([]Settings, error)
	Update(ctx context.Context, userKey string, params UpdateParams) (Settings, error)
	Keywords(ctx context.Context, userKey string) ([]string, error)
	AllKeywords(ctx context.Context) ([]string, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	validate *validator.Validate
	now      func() time.Time
}

// Params collects the dependencies for NewService.
type Params struct {
	Repo Repository
	Tx   txRunner
	Now  func() time.Time
}

// NewService validates the params and returns a settings service.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings tx runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		validate: validator.New(),
		now:      now,
	}, nil
}

func (s *service) Get(ctx context.Context, userKey string) (Settings, error) {
	if userKey == "" {
		return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "user key required")
	}

	row, err := s.repo.GetRow(ctx, userKey)
	if err != nil {
		return Settings{}, err
	}
	keywords, err := s.repo.UserKeywords(ctx, userKey)
	if err != nil {
		return Settings{}, err
	}
	return merge(userKey, row, keywords), nil
}

func (s *service) GetAll(ctx context.Context) ([]Settings, error) {
	rows, err := s.repo.ListRows(ctx)
	if err != nil {
		return nil, err
	}
	keywordsByUser, err := s.repo.KeywordsByUser(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Settings, 0, len(rows))
	covered := map[string]bool{}
	for i := range rows {
		row := rows[i]
		covered[row.UserKey] = true
		out = append(out, merge(row.UserKey, &row, keywordsByUser[row.UserKey]))
	}
	// Users with keywords but no settings row still get defaults.
	for userKey, keywords := range keywordsByUser {
		if !covered[userKey] {
			out = append(out, merge(userKey, nil, keywords))
		}
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, userKey string, params UpdateParams) (Settings, error) {
	if userKey == "" {
		return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "user key required")
	}
	if err := s.validate.Struct(params); err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid settings update")
	}
	if params.Keywords != nil {
		cleaned, err := normalizeKeywords(*params.Keywords)
		if err != nil {
			return Settings{}, err
		}
		params.Keywords = &cleaned
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		row, err := repo.GetRow(ctx, userKey)
		if err != nil {
			return err
		}
		if row == nil {
			row = &models.NotificationSetting{UserKey: userKey, CreatedAt: s.now().UTC()}
		}
		applyUpdate(row, params)
		row.UpdatedAt = s.now().UTC()
		if err := repo.UpsertRow(ctx, row); err != nil {
			return err
		}

		if params.Keywords != nil {
			if err := repo.ReplaceKeywords(ctx, userKey, *params.Keywords); err != nil {
				return err
			}
			if err := repo.UnionGlobalKeywords(ctx, *params.Keywords); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return Settings{}, err
		}
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating settings")
	}
	return s.Get(ctx, userKey)
}

func (s *service) Keywords(ctx context.Context, userKey string) ([]string, error) {
	if userKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user key required")
	}
	return s.repo.UserKeywords(ctx, userKey)
}

func (s *service) AllKeywords(ctx context.Context) ([]string, error) {
	return s.repo.AllKeywords(ctx)
}

func merge(userKey string, row *models.NotificationSetting, keywords []string) Settings {
	merged := Defaults(userKey)
	if keywords != nil {
		merged.Keywords = keywords
	}
	if row == nil {
		return merged
	}
	if row.Language != nil {
		merged.Language = *row.Language
	}
	if row.DesktopNotifications != nil {
		merged.DesktopNotifications = *row.DesktopNotifications
	}
	if row.PushNotifications != nil {
		merged.PushNotifications = *row.PushNotifications
	}
	if row.UpdateIntervalMinutes != nil {
		merged.UpdateIntervalMinutes = *row.UpdateIntervalMinutes
	}
	if row.LocationFilterEnabled != nil {
		merged.LocationFilterEnabled = *row.LocationFilterEnabled
	}
	if row.Locations != nil {
		merged.Locations = row.Locations
	}
	if row.KeywordFilterEnabled != nil {
		merged.KeywordFilterEnabled = *row.KeywordFilterEnabled
	}
	return merged
}

func applyUpdate(row *models.NotificationSetting, params UpdateParams) {
	if params.Language != nil {
		row.Language = params.Language
	}
	if params.DesktopNotifications != nil {
		row.DesktopNotifications = params.DesktopNotifications
	}
	if params.PushNotifications != nil {
		row.PushNotifications = params.PushNotifications
	}
	if params.UpdateIntervalMinutes != nil {
		row.UpdateIntervalMinutes = params.UpdateIntervalMinutes
	}
	if params.LocationFilterEnabled != nil {
		row.LocationFilterEnabled = params.LocationFilterEnabled
	}
	if params.Locations != nil {
		row.Locations = dbtypes.StringList(*params.Locations)
	}
	if params.KeywordFilterEnabled != nil {
		row.KeywordFilterEnabled = params.KeywordFilterEnabled
	}
}

func normalizeKeywords(keywords []string) ([]string, error) {
	seen := map[string]bool{}
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if len(kw) < 3 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "keywords must be at least 3 characters")
		}
		if seen[kw] {
			continue
		}
		seen[kw] = true
		cleaned = append(cleaned, kw)
	}
	if len(cleaned) > 20 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at most 20 keywords allowed")
	}
	return cleaned, nil
}
