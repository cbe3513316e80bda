package models

import (
	"log"

	"github.com/mmdatafocus/estate_console/config"
)

func MigrateTable() {
	db := config.GetDB()
	if db == nil {
		return
	}

	err := db.AutoMigrate(
		&SavedFilter{},
		&MutationLog{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
