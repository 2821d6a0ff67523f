// Package migration creates the schema on startup so a fresh install is
// usable without external tooling. Postgres goes through versioned SQL
// migrations; other dialects fall back to gorm's AutoMigrate.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	billingdomain "github.com/smallbiznis/milkrun/internal/billing/domain"
	calendardomain "github.com/smallbiznis/milkrun/internal/calendar/domain"
	containerdomain "github.com/smallbiznis/milkrun/internal/container/domain"
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
	deliverydomain "github.com/smallbiznis/milkrun/internal/delivery/domain"
	pricingdomain "github.com/smallbiznis/milkrun/internal/pricing/domain"
	subscriptiondomain "github.com/smallbiznis/milkrun/internal/subscription/domain"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "sql"

// RunPostgres applies the embedded versioned migrations.
func RunPostgres(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate is the non-postgres path, used for sqlite development
// databases and tests.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&customerdomain.Customer{},
		&subscriptiondomain.Subscription{},
		&walletdomain.Wallet{},
		&walletdomain.WalletTransaction{},
		&pricingdomain.PriceTier{},
		&deliverydomain.Delivery{},
		&calendardomain.Pause{},
		&calendardomain.DeliveryModification{},
		&billingdomain.MonthlyPayment{},
		&containerdomain.ContainerLedgerEntry{},
		&containerdomain.ContainerBalance{},
	)
}
