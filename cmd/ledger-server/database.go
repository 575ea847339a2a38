package main

import (
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/qZheng/CavityProof/ledger"
)

// connectDatabase picks the driver from DB_DRIVER (sqlite by default, the
// local and test setup) and dials DB_CONNECTION_STRING.
func connectDatabase() (*gorm.DB, error) {
	connectionString := os.Getenv("DB_CONNECTION_STRING")
	if connectionString == "" {
		connectionString = "cavityproof.db"
	}

	switch driver := os.Getenv("DB_DRIVER"); driver {
	case "", "sqlite":
		return ledger.ConnectToDatabase(connectionString)
	case "postgres":
		return ledger.ConnectToPostgres(connectionString)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}
