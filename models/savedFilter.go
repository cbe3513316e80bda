package models

import (
	"context"
	"errors"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDatabaseUnavailable = errors.New("saved filters are not available: no database configured")

// SavedFilter is a named view state a user keeps for one report.
type SavedFilter struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"index:idx_saved_filter_owner,unique;size:100;not null" json:"username"`
	Report    string    `gorm:"index:idx_saved_filter_owner,unique;size:50;not null" json:"report"`
	Name      string    `gorm:"index:idx_saved_filter_owner,unique;size:100;not null" json:"name"`
	State     ViewState `gorm:"type:text;serializer:json" json:"state"`
	IsDefault bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSavedFilter struct {
	Name      string    `json:"name" validate:"required,max=100"`
	State     ViewState `json:"state"`
	IsDefault bool      `json:"is_default"`
}

func savedFilterOwner(ctx context.Context) (*gorm.DB, string, error) {
	db := config.GetDB()
	if db == nil {
		return nil, "", ErrDatabaseUnavailable
	}
	username, ok := utils.GetUsernameFromContext(ctx)
	if !ok || username == "" {
		return nil, "", utils.ErrorUnauthorized
	}
	return db, username, nil
}

// SaveFilter creates or overwrites the caller's filter with the same name.
// Marking it default clears the flag on the caller's other filters of the report.
func SaveFilter(ctx context.Context, report string, input *NewSavedFilter) (*SavedFilter, error) {
	if err := utils.Validator().Struct(input); err != nil {
		return nil, &ValidationError{Fields: utils.ProcessValidationErrors(err)}
	}
	db, username, err := savedFilterOwner(ctx)
	if err != nil {
		return nil, err
	}

	filter := SavedFilter{
		Username:  username,
		Report:    report,
		Name:      strings.TrimSpace(input.Name),
		State:     input.State,
		IsDefault: input.IsDefault,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if filter.IsDefault {
			if err := tx.Model(&SavedFilter{}).
				Where("username = ? AND report = ?", username, report).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return upsertSavedFilter(tx, &filter)
	})
	if err != nil {
		return nil, err
	}
	return &filter, nil
}

// upsertSavedFilter overwrites the filter with the same owner, report and name
// or creates it. A concurrent save of the same name that wins the insert shows
// up as a duplicate key; the save then becomes an update of that row.
func upsertSavedFilter(tx *gorm.DB, filter *SavedFilter) error {
	for attempt := 0; ; attempt++ {
		query := tx
		if attempt > 0 {
			// a locking read sees the row committed by the other save
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var existing SavedFilter
		err := query.Where("username = ? AND report = ? AND name = ?", filter.Username, filter.Report, filter.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Create(filter).Error
			if isDuplicateKeyErr(err) && attempt == 0 {
				filter.ID = 0
				continue
			}
			return err
		}
		if err != nil {
			return err
		}
		filter.ID = existing.ID
		filter.CreatedAt = existing.CreatedAt
		return tx.Save(filter).Error
	}
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func ListSavedFilters(ctx context.Context, report string) ([]*SavedFilter, error) {
	db, username, err := savedFilterOwner(ctx)
	if err != nil {
		return nil, err
	}
	var filters []*SavedFilter
	err = db.WithContext(ctx).
		Where("username = ? AND report = ?", username, report).
		Order("is_default DESC, name").
		Find(&filters).Error
	return filters, err
}

func GetSavedFilter(ctx context.Context, report string, id int) (*SavedFilter, error) {
	db, username, err := savedFilterOwner(ctx)
	if err != nil {
		return nil, err
	}
	var filter SavedFilter
	err = db.WithContext(ctx).Where("id = ? AND username = ? AND report = ?", id, username, report).First(&filter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &filter, nil
}

// GetDefaultSavedFilter returns nil without an error when the user has no default.
func GetDefaultSavedFilter(ctx context.Context, report string) (*SavedFilter, error) {
	db, username, err := savedFilterOwner(ctx)
	if err != nil {
		return nil, err
	}
	var filter SavedFilter
	err = db.WithContext(ctx).Where("username = ? AND report = ? AND is_default = ?", username, report, true).First(&filter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &filter, nil
}

func DeleteSavedFilter(ctx context.Context, report string, id int) error {
	db, username, err := savedFilterOwner(ctx)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).Where("id = ? AND username = ? AND report = ?", id, username, report).Delete(&SavedFilter{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
