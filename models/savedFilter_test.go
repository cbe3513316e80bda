package models

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/estate_console/config"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"duplicate entry", &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry 'ravi-leads-Open' for key 'idx_saved_filter_owner'"}, true},
		{"wrapped duplicate", fmt.Errorf("save filter: %w", &mysqlDriver.MySQLError{Number: 1062}), true},
		{"foreign key", &mysqlDriver.MySQLError{Number: 1452}, false},
		{"not found", gorm.ErrRecordNotFound, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDuplicateKeyErr(tc.err); got != tc.want {
				t.Fatalf("isDuplicateKeyErr(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestSaveFilterWithoutDatabase(t *testing.T) {
	if config.GetDB() != nil {
		t.Skip("database configured")
	}
	_, err := SaveFilter(context.Background(), "leads", &NewSavedFilter{Name: "Open", State: DefaultViewState()})
	if !errors.Is(err, ErrDatabaseUnavailable) {
		t.Fatalf("expected ErrDatabaseUnavailable, got %v", err)
	}

	_, err = SaveFilter(context.Background(), "leads", &NewSavedFilter{Name: ""})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Fields["name"] != "required" {
		t.Fatalf("expected name required, got %v", err)
	}
}
