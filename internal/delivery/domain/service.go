package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
)

type Service interface {
	// MarkDelivered moves a SCHEDULED row to DELIVERED, debits the wallet
	// by the row's stored charge and re-syncs the customer's status
	// against the new balance, all in one transaction.
	MarkDelivered(ctx context.Context, customerID snowflake.ID, date clock.Date) (*Delivery, error)

	// MarkNotDelivered closes the row without a charge.
	MarkNotDelivered(ctx context.Context, customerID snowflake.ID, date clock.Date) (*Delivery, error)

	ListForPerson(ctx context.Context, personID snowflake.ID, date clock.Date) ([]Delivery, error)
}
