package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/milkrun/internal/billing/domain"
	"github.com/smallbiznis/milkrun/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) InsertIgnoreExisting(ctx context.Context, conn *gorm.DB, payment *billingdomain.MonthlyPayment) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`INSERT INTO monthly_payments (
			id, customer_id, year, month, total_cost_cents, status,
			paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (customer_id, year, month) DO NOTHING`,
		payment.ID,
		payment.CustomerID,
		payment.Year,
		payment.Month,
		payment.TotalCostCents,
		string(payment.Status),
		payment.PaidAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) Find(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, year, month int) (*billingdomain.MonthlyPayment, error) {
	return r.find(ctx, conn, customerID, year, month, "")
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, year, month int) (*billingdomain.MonthlyPayment, error) {
	return r.find(ctx, conn, customerID, year, month, db.LockClause(conn))
}

func (r *repo) find(ctx context.Context, conn *gorm.DB, customerID snowflake.ID, year, month int, lock string) (*billingdomain.MonthlyPayment, error) {
	var payment billingdomain.MonthlyPayment
	query := fmt.Sprintf(
		`SELECT id, customer_id, year, month, total_cost_cents, status,
		 paid_at, created_at, updated_at
		 FROM monthly_payments
		 WHERE customer_id = ? AND year = ? AND month = ? %s`,
		lock,
	)
	if err := conn.WithContext(ctx).Raw(query, customerID, year, month).Scan(&payment).Error; err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, payment *billingdomain.MonthlyPayment) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE monthly_payments
		 SET total_cost_cents = ?, status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ?`,
		payment.TotalCostCents,
		string(payment.Status),
		payment.PaidAt,
		payment.UpdatedAt,
		payment.ID,
	).Error
}
