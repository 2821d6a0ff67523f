package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/milkrun/internal/customer/domain"
	"github.com/smallbiznis/milkrun/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() customerdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, customer *customerdomain.Customer) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO customers (
			id, name, phone, address, status, delivery_person_id,
			assignment_start_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Address,
		string(customer.Status),
		customer.DeliveryPersonID,
		customer.AssignmentStartDate,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*customerdomain.Customer, error) {
	return r.find(ctx, conn, id, "")
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*customerdomain.Customer, error) {
	return r.find(ctx, conn, id, db.LockClause(conn))
}

func (r *repo) find(ctx context.Context, conn *gorm.DB, id snowflake.ID, lock string) (*customerdomain.Customer, error) {
	var customer customerdomain.Customer
	query := fmt.Sprintf(
		`SELECT id, name, phone, address, status, delivery_person_id,
		 assignment_start_date, created_at, updated_at
		 FROM customers WHERE id = ? %s`,
		lock,
	)
	if err := conn.WithContext(ctx).Raw(query, id).Scan(&customer).Error; err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, customer *customerdomain.Customer) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE customers
		 SET name = ?, phone = ?, address = ?, status = ?, delivery_person_id = ?,
		     assignment_start_date = ?, updated_at = ?
		 WHERE id = ?`,
		customer.Name,
		customer.Phone,
		customer.Address,
		string(customer.Status),
		customer.DeliveryPersonID,
		customer.AssignmentStartDate,
		customer.UpdatedAt,
		customer.ID,
	).Error
}
