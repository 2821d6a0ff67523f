package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milkrun/internal/clock"
	containerdomain "github.com/smallbiznis/milkrun/internal/container/domain"
	walletdomain "github.com/smallbiznis/milkrun/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Zone      *clock.Zone
	Repo      containerdomain.Repository
	WalletSvc walletdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	zone      *clock.Zone
	repo      containerdomain.Repository
	walletSvc walletdomain.Service
}

func NewService(p ServiceParam) containerdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("container.service"),
		genID:     p.GenID,
		zone:      p.Zone,
		repo:      p.Repo,
		walletSvc: p.WalletSvc,
	}
}

func (s *Service) Issue(ctx context.Context, req containerdomain.MoveRequest) (*containerdomain.ContainerLedgerEntry, error) {
	if err := validateMove(req); err != nil {
		return nil, err
	}

	var out *containerdomain.ContainerLedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.move(ctx, tx, req.CustomerID, containerdomain.ActionIssued, req.SizeClass, req.Quantity, req.Notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Return(ctx context.Context, req containerdomain.MoveRequest) (*containerdomain.ContainerLedgerEntry, error) {
	if err := validateMove(req); err != nil {
		return nil, err
	}

	var out *containerdomain.ContainerLedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.move(ctx, tx, req.CustomerID, containerdomain.ActionReturned, req.SizeClass, req.Quantity, req.Notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// move folds one action into the per-size balance and appends the ledger
// entry, both under the balance row lock. Returns and penalties are
// bounded by the outstanding count so the balance never goes negative.
func (s *Service) move(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, action containerdomain.Action, size containerdomain.SizeClass, quantity int, notes string) (*containerdomain.ContainerLedgerEntry, error) {
	balance, err := s.repo.EnsureBalance(ctx, tx, s.genID.Generate, customerID, size)
	if err != nil {
		return nil, err
	}

	newCount := balance.BalanceCount
	switch action {
	case containerdomain.ActionIssued:
		newCount += quantity
	case containerdomain.ActionReturned, containerdomain.ActionPenalty:
		if quantity > balance.BalanceCount {
			return nil, &containerdomain.ExceedsBalanceError{
				SizeClass:   size,
				Requested:   quantity,
				Outstanding: balance.BalanceCount,
			}
		}
		newCount -= quantity
	}

	updated, err := s.repo.UpdateBalance(ctx, tx, balance.ID, balance.BalanceCount, newCount)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, containerdomain.ErrConcurrentModification
	}

	entry := &containerdomain.ContainerLedgerEntry{
		ID:           s.genID.Generate(),
		CustomerID:   customerID,
		Action:       action,
		SizeClass:    size,
		Quantity:     quantity,
		BalanceAfter: newCount,
		Notes:        notes,
		CreatedAt:    s.zone.Now().UTC(),
	}
	if err := s.repo.InsertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) Balances(ctx context.Context, customerID snowflake.ID) (containerdomain.Balances, error) {
	rows, err := s.repo.FindBalances(ctx, s.db, customerID)
	if err != nil {
		return containerdomain.Balances{}, err
	}
	var out containerdomain.Balances
	for _, row := range rows {
		switch row.SizeClass {
		case containerdomain.SizeLarge:
			out.Large = row.BalanceCount
		case containerdomain.SizeSmall:
			out.Small = row.BalanceCount
		}
	}
	return out, nil
}

func (s *Service) History(ctx context.Context, customerID snowflake.ID, limit int) ([]containerdomain.ContainerLedgerEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListEntries(ctx, s.db, customerID, limit)
}

func (s *Service) ListOverdue(ctx context.Context, thresholdDays int) ([]containerdomain.OverdueCustomer, error) {
	if thresholdDays <= 0 {
		thresholdDays = 7
	}
	cutoff := s.zone.Now().AddDate(0, 0, -thresholdDays)

	positive, err := s.repo.ListPositiveBalances(ctx, s.db)
	if err != nil {
		return nil, err
	}

	byCustomer := make(map[snowflake.ID]*containerdomain.OverdueCustomer)
	order := make([]snowflake.ID, 0, len(positive))
	for _, row := range positive {
		oldest, err := s.repo.OldestOutstandingIssue(ctx, s.db, row.CustomerID, row.SizeClass)
		if err != nil {
			return nil, err
		}
		if oldest == nil || !oldest.CreatedAt.Before(cutoff) {
			continue
		}

		flag, ok := byCustomer[row.CustomerID]
		if !ok {
			flag = &containerdomain.OverdueCustomer{CustomerID: row.CustomerID, OldestIssueAt: oldest.CreatedAt}
			byCustomer[row.CustomerID] = flag
			order = append(order, row.CustomerID)
		}
		if oldest.CreatedAt.Before(flag.OldestIssueAt) {
			flag.OldestIssueAt = oldest.CreatedAt
		}
		switch row.SizeClass {
		case containerdomain.SizeLarge:
			flag.Large = row.BalanceCount
		case containerdomain.SizeSmall:
			flag.Small = row.BalanceCount
		}
	}

	out := make([]containerdomain.OverdueCustomer, 0, len(order))
	for _, id := range order {
		flag := byCustomer[id]
		flag.DaysOverdue = int(s.zone.Now().Sub(flag.OldestIssueAt).Hours() / 24)
		out = append(out, *flag)
	}
	return out, nil
}

// ImposePenalty settles the counts and charges the fine as one unit. A
// forced settlement reduces the outstanding count like a return would.
func (s *Service) ImposePenalty(ctx context.Context, req containerdomain.PenaltyRequest) error {
	if req.CustomerID == 0 {
		return containerdomain.ErrInvalidCustomer
	}
	if req.FineCents <= 0 {
		return containerdomain.ErrInvalidFine
	}
	if req.LargeCount < 0 || req.SmallCount < 0 || req.LargeCount+req.SmallCount == 0 {
		return containerdomain.ErrInvalidQuantity
	}

	notes := req.Notes
	if notes == "" {
		notes = "overdue container penalty"
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.LargeCount > 0 {
			if _, err := s.move(ctx, tx, req.CustomerID, containerdomain.ActionPenalty, containerdomain.SizeLarge, req.LargeCount, notes); err != nil {
				return err
			}
		}
		if req.SmallCount > 0 {
			if _, err := s.move(ctx, tx, req.CustomerID, containerdomain.ActionPenalty, containerdomain.SizeSmall, req.SmallCount, notes); err != nil {
				return err
			}
		}
		_, err := s.walletSvc.ApplyDelta(
			ctx, tx, req.CustomerID, -req.FineCents, walletdomain.TxnPenalty,
			fmt.Sprintf("%s (%d large, %d small)", notes, req.LargeCount, req.SmallCount),
			nil,
		)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("penalty imposed",
		zap.String("customer_id", req.CustomerID.String()),
		zap.Int64("fine_cents", req.FineCents),
		zap.Int("large", req.LargeCount),
		zap.Int("small", req.SmallCount),
	)
	return nil
}

func validateMove(req containerdomain.MoveRequest) error {
	if req.CustomerID == 0 {
		return containerdomain.ErrInvalidCustomer
	}
	if !req.SizeClass.Valid() {
		return containerdomain.ErrInvalidSizeClass
	}
	if req.Quantity <= 0 {
		return containerdomain.ErrInvalidQuantity
	}
	return nil
}
