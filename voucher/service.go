/*
service.go - Voucher persistence orchestration

PURPOSE:
  The Service plays the part of the owning voucher page: it resolves
  reference data, runs the calculator and the submit rules, and only then
  persists the voucher and posts it to the ledger, both inside one store
  transaction.

REQUEST FLOW (Create):
  1. Resolve account / product names from the catalog, round entered
     amounts to cents
  2. Compute totals (auto-balance for opening balances)
  3. Validate; on failure return ValidationErrors, nothing is written
  4. Assign ID, sequence and number
  5. WithTx: save voucher, post ledger legs

UPDATE:
  Old postings are reversed and the new ones appended in the same
  transaction. The ledger keeps both.

DELETE:
  Postings are reversed, then the document is removed.

A failed save leaves the caller's voucher untouched so it can be corrected
and resubmitted.
*/
package voucher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/ledger"
	"github.com/warp/voucher-ledger/money"
)

type Service struct {
	store    TxStore
	catalog  catalog.Catalog
	calc     *Calculator
	accounts PostingAccounts
	logger   *slog.Logger

	// mu serialises sequence assignment.
	mu  sync.Mutex
	Now func() time.Time
}

func NewService(store TxStore, cat catalog.Catalog, calc *Calculator, accounts PostingAccounts, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:    store,
		catalog:  cat,
		calc:     calc,
		accounts: accounts,
		logger:   logger,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Calculator() *Calculator { return s.calc }

// Prepare resolves names, recomputes totals and validates v. It writes
// nothing. The returned voucher is what Create would persist.
func (s *Service) Prepare(ctx context.Context, v Voucher) (Voucher, error) {
	if !v.Kind.IsValid() {
		return v, ValidationErrors{issue(0, "unknown_kind", ErrUnknownKind, "unknown voucher kind "+string(v.Kind))}
	}

	resolved, errs, err := s.resolve(ctx, v)
	if err != nil {
		return v, err
	}

	computed := s.calc.Compute(roundAmounts(resolved))
	if err := s.calc.Validate(computed); err != nil {
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			return v, err
		}
		errs = append(errs, verrs...)
	}
	if len(errs) > 0 {
		s.logger.Debug("voucher rejected", "kind", v.Kind, "issues", errs.Error())
		return computed, errs
	}
	return computed, nil
}

// Create validates and saves a new voucher, posting it to the ledger.
func (s *Service) Create(ctx context.Context, v Voucher) (Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepared, err := s.Prepare(ctx, v)
	if err != nil {
		return Voucher{}, err
	}

	seq, err := s.store.MaxSequence(ctx, prepared.Kind)
	if err != nil {
		return Voucher{}, fmt.Errorf("next voucher number: %w", err)
	}

	now := s.Now()
	prepared.ID = uuid.NewString()
	prepared.Sequence = seq + 1
	prepared.Revision = 1
	if prepared.Number == "" {
		prepared.Number = FormatNumber(prepared.Kind, prepared.Sequence)
	}
	prepared.CreatedAt = now
	prepared.UpdatedAt = now

	postings, err := Postings(prepared, s.accounts)
	if err != nil {
		return Voucher{}, err
	}

	err = s.store.WithTx(ctx, func(vs Store, ls ledger.Store) error {
		if err := vs.CreateVoucher(ctx, prepared); err != nil {
			return err
		}
		return ledger.New(ls).Post(ctx, postings)
	})
	if err != nil {
		s.logger.Error("voucher save failed", "kind", prepared.Kind, "error", err)
		return Voucher{}, err
	}

	s.logger.Info("voucher created",
		"id", prepared.ID,
		"number", prepared.Number,
		"kind", prepared.Kind,
		"amount", money.Format(prepared.Totals.Amount(prepared.Kind.Family())),
		"postings", len(postings),
	)
	return prepared, nil
}

// Update replaces the voucher's content. The kind cannot change.
func (s *Service) Update(ctx context.Context, id string, v Voucher) (Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetVoucher(ctx, id)
	if err != nil {
		return Voucher{}, err
	}
	if v.Kind != "" && v.Kind != existing.Kind {
		return Voucher{}, fmt.Errorf("%w: %s to %s", ErrKindChanged, existing.Kind, v.Kind)
	}
	v.Kind = existing.Kind

	prepared, err := s.Prepare(ctx, v)
	if err != nil {
		return Voucher{}, err
	}
	prepared.ID = existing.ID
	prepared.Sequence = existing.Sequence
	prepared.Revision = existing.Revision + 1
	if prepared.Number == "" {
		prepared.Number = existing.Number
	}
	prepared.CreatedAt = existing.CreatedAt
	prepared.UpdatedAt = s.Now()

	postings, err := Postings(prepared, s.accounts)
	if err != nil {
		return Voucher{}, err
	}

	err = s.store.WithTx(ctx, func(vs Store, ls ledger.Store) error {
		if err := vs.UpdateVoucher(ctx, prepared); err != nil {
			return err
		}
		l := ledger.New(ls)
		reason := "Revision of " + existing.Number
		if _, err := l.Reverse(ctx, existing.ID, existing.Date, reason); err != nil && !errors.Is(err, ledger.ErrNothingToReverse) {
			return err
		}
		return l.Post(ctx, postings)
	})
	if err != nil {
		s.logger.Error("voucher update failed", "id", id, "error", err)
		return Voucher{}, err
	}

	s.logger.Info("voucher updated", "id", prepared.ID, "number", prepared.Number, "revision", prepared.Revision)
	return prepared, nil
}

// Delete reverses the voucher's postings and removes the document.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetVoucher(ctx, id)
	if err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(vs Store, ls ledger.Store) error {
		reason := "Deletion of " + existing.Number
		if _, err := ledger.New(ls).Reverse(ctx, id, existing.Date, reason); err != nil && !errors.Is(err, ledger.ErrNothingToReverse) {
			return err
		}
		return vs.DeleteVoucher(ctx, id)
	})
	if err != nil {
		s.logger.Error("voucher delete failed", "id", id, "error", err)
		return err
	}

	s.logger.Info("voucher deleted", "id", id, "number", existing.Number)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Voucher, error) {
	return s.store.GetVoucher(ctx, id)
}

func (s *Service) List(ctx context.Context, kind Kind) ([]Voucher, error) {
	if kind != "" && !kind.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return s.store.ListVouchers(ctx, kind)
}

// resolve fills display names from the catalog. Unknown IDs become
// validation issues; lookup failures other than not-found are returned as
// errors.
func (s *Service) resolve(ctx context.Context, v Voucher) (Voucher, ValidationErrors, error) {
	out := v.Clone()
	var errs ValidationErrors

	account := func(line int, id string) (catalog.Account, bool, error) {
		acc, err := s.catalog.Account(ctx, id)
		if err == nil {
			return acc, true, nil
		}
		if catalog.IsNotFound(err) {
			errs = append(errs, issue(line, "unknown_account", ErrMissingAccount, "unknown account "+id))
			return catalog.Account{}, false, nil
		}
		return catalog.Account{}, false, err
	}

	for i := range out.Lines {
		l := &out.Lines[i]
		if l.AccountID == "" {
			continue
		}
		acc, ok, err := account(i+1, l.AccountID)
		if err != nil {
			return v, nil, err
		}
		if ok {
			l.AccountName = acc.Name
		}
	}

	for i := range out.Items {
		item := &out.Items[i]
		if item.ProductID == "" {
			continue
		}
		p, err := s.catalog.Product(ctx, item.ProductID)
		switch {
		case err == nil:
			if item.ProductName == "" {
				item.ProductName = p.Name
			}
		case catalog.IsNotFound(err):
			errs = append(errs, issue(i+1, "unknown_product", ErrMissingProduct, "unknown product "+item.ProductID))
		default:
			return v, nil, err
		}
	}

	for i := range out.Payments {
		p := &out.Payments[i]
		if p.LedgerID == "" {
			continue
		}
		acc, ok, err := account(i+1, p.LedgerID)
		if err != nil {
			return v, nil, err
		}
		if ok {
			p.LedgerName = acc.Name
		}
	}

	for _, id := range []string{out.PartyAccountID, out.CashAccountID} {
		if id == "" {
			continue
		}
		if _, _, err := account(0, id); err != nil {
			return v, nil, err
		}
	}

	return out, errs, nil
}

// roundAmounts rounds the entered debit, credit and payment amounts to
// cents so posted legs net to exactly zero. v must already be a clone.
func roundAmounts(v Voucher) Voucher {
	for i := range v.Lines {
		v.Lines[i].Debit = money.Round2(v.Lines[i].Debit)
		v.Lines[i].Credit = money.Round2(v.Lines[i].Credit)
	}
	for i := range v.Payments {
		v.Payments[i].Amount = money.Round2(v.Payments[i].Amount)
	}
	return v
}
