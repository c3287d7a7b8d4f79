// Package memory provides an in-memory store for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/voucher-ledger/catalog"
	"github.com/warp/voucher-ledger/ledger"
	"github.com/warp/voucher-ledger/voucher"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store implements catalog.Catalog, catalog.Writer, ledger.Store and
// voucher.TxStore.
type Store struct {
	mu sync.RWMutex
	s  state
}

type state struct {
	accounts    map[string]catalog.Account
	products    map[string]catalog.Product
	vouchers    map[string]voucher.Voucher
	postings    []ledger.Posting
	idempotency map[string]bool
}

func newState() state {
	return state{
		accounts:    make(map[string]catalog.Account),
		products:    make(map[string]catalog.Product),
		vouchers:    make(map[string]voucher.Voucher),
		idempotency: make(map[string]bool),
	}
}

func New() *Store {
	return &Store{s: newState()}
}

// Reset drops all data.
func (m *Store) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = newState()
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

func (m *Store) SaveAccount(_ context.Context, a catalog.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.s.accounts {
		if id != a.ID && other.Code == a.Code {
			return catalog.ErrDuplicateCode
		}
	}
	m.s.accounts[a.ID] = a
	return nil
}

func (m *Store) SaveProduct(_ context.Context, p catalog.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.s.products {
		if id != p.ID && p.Code != "" && other.Code == p.Code {
			return catalog.ErrDuplicateCode
		}
	}
	m.s.products[p.ID] = p
	return nil
}

func (m *Store) Account(_ context.Context, id string) (catalog.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.s.accounts[id]
	if !ok {
		return catalog.Account{}, catalog.ErrAccountNotFound
	}
	return a, nil
}

func (m *Store) AccountByCode(_ context.Context, code string) (catalog.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.s.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return catalog.Account{}, catalog.ErrAccountNotFound
}

// Accounts returns the chart ordered by code.
func (m *Store) Accounts(_ context.Context) ([]catalog.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Account, 0, len(m.s.accounts))
	for _, a := range m.s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *Store) Product(_ context.Context, id string) (catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *Store) Products(_ context.Context) ([]catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Product, 0, len(m.s.products))
	for _, p := range m.s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// =============================================================================
// VOUCHERS & POSTINGS (locked wrappers)
// =============================================================================

func (m *Store) CreateVoucher(_ context.Context, v voucher.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.createVoucher(v)
}

func (m *Store) UpdateVoucher(_ context.Context, v voucher.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.updateVoucher(v)
}

func (m *Store) DeleteVoucher(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.deleteVoucher(id)
}

func (m *Store) GetVoucher(_ context.Context, id string) (voucher.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.getVoucher(id)
}

func (m *Store) ListVouchers(_ context.Context, kind voucher.Kind) ([]voucher.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.listVouchers(kind), nil
}

func (m *Store) MaxSequence(_ context.Context, kind voucher.Kind) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.maxSequence(kind), nil
}

// AppendPostings adds postings atomically. Append-only.
func (m *Store) AppendPostings(_ context.Context, postings []ledger.Posting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.appendPostings(postings)
}

func (m *Store) AccountPostings(_ context.Context, accountID string, period ledger.Period) ([]ledger.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.accountPostings(accountID, period), nil
}

func (m *Store) VoucherPostings(_ context.Context, voucherID string) ([]ledger.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.voucherPostings(voucherID), nil
}

func (m *Store) PostingKeyExists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s.idempotency[key], nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For the memory store, this is simulated with a snapshot + rollback on error.
func (m *Store) WithTx(_ context.Context, fn func(voucher.Store, ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.s.clone()
	view := &txView{s: &m.s}
	if err := fn(view, view); err != nil {
		m.s = snapshot
		return err
	}
	return nil
}

// txView runs against the parent's state while the parent lock is held.
type txView struct {
	s *state
}

func (tv *txView) CreateVoucher(_ context.Context, v voucher.Voucher) error {
	return tv.s.createVoucher(v)
}

func (tv *txView) UpdateVoucher(_ context.Context, v voucher.Voucher) error {
	return tv.s.updateVoucher(v)
}

func (tv *txView) DeleteVoucher(_ context.Context, id string) error {
	return tv.s.deleteVoucher(id)
}

func (tv *txView) GetVoucher(_ context.Context, id string) (voucher.Voucher, error) {
	return tv.s.getVoucher(id)
}

func (tv *txView) ListVouchers(_ context.Context, kind voucher.Kind) ([]voucher.Voucher, error) {
	return tv.s.listVouchers(kind), nil
}

func (tv *txView) MaxSequence(_ context.Context, kind voucher.Kind) (int, error) {
	return tv.s.maxSequence(kind), nil
}

func (tv *txView) AppendPostings(_ context.Context, postings []ledger.Posting) error {
	return tv.s.appendPostings(postings)
}

func (tv *txView) AccountPostings(_ context.Context, accountID string, period ledger.Period) ([]ledger.Posting, error) {
	return tv.s.accountPostings(accountID, period), nil
}

func (tv *txView) VoucherPostings(_ context.Context, voucherID string) ([]ledger.Posting, error) {
	return tv.s.voucherPostings(voucherID), nil
}

func (tv *txView) PostingKeyExists(_ context.Context, key string) (bool, error) {
	return tv.s.idempotency[key], nil
}

// =============================================================================
// STATE (caller holds the lock)
// =============================================================================

func (s *state) clone() state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.vouchers {
		c.vouchers[k] = v.Clone()
	}
	c.postings = append([]ledger.Posting(nil), s.postings...)
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	return c
}

func (s *state) createVoucher(v voucher.Voucher) error {
	if _, exists := s.vouchers[v.ID]; exists {
		return voucher.ErrDuplicateVoucher
	}
	s.vouchers[v.ID] = v.Clone()
	return nil
}

func (s *state) updateVoucher(v voucher.Voucher) error {
	if _, exists := s.vouchers[v.ID]; !exists {
		return voucher.ErrVoucherNotFound
	}
	s.vouchers[v.ID] = v.Clone()
	return nil
}

func (s *state) deleteVoucher(id string) error {
	if _, exists := s.vouchers[id]; !exists {
		return voucher.ErrVoucherNotFound
	}
	delete(s.vouchers, id)
	return nil
}

func (s *state) getVoucher(id string) (voucher.Voucher, error) {
	v, ok := s.vouchers[id]
	if !ok {
		return voucher.Voucher{}, voucher.ErrVoucherNotFound
	}
	return v.Clone(), nil
}

func (s *state) listVouchers(kind voucher.Kind) []voucher.Voucher {
	var out []voucher.Voucher
	for _, v := range s.vouchers {
		if kind == "" || v.Kind == kind {
			out = append(out, v.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

func (s *state) maxSequence(kind voucher.Kind) int {
	highest := 0
	for _, v := range s.vouchers {
		if v.Kind == kind && v.Sequence > highest {
			highest = v.Sequence
		}
	}
	return highest
}

func (s *state) appendPostings(postings []ledger.Posting) error {
	// Check all idempotency keys first (atomic check)
	batch := make(map[string]bool, len(postings))
	for _, p := range postings {
		if p.IdempotencyKey == "" {
			continue
		}
		if s.idempotency[p.IdempotencyKey] || batch[p.IdempotencyKey] {
			return ledger.ErrDuplicateIdempotencyKey
		}
		batch[p.IdempotencyKey] = true
	}

	// Stable insert by date keeps creation order within a day.
	for _, p := range postings {
		i := sort.Search(len(s.postings), func(i int) bool {
			return s.postings[i].Date.After(p.Date)
		})
		s.postings = append(s.postings, ledger.Posting{})
		copy(s.postings[i+1:], s.postings[i:])
		s.postings[i] = p
		if p.IdempotencyKey != "" {
			s.idempotency[p.IdempotencyKey] = true
		}
	}
	return nil
}

func (s *state) accountPostings(accountID string, period ledger.Period) []ledger.Posting {
	var out []ledger.Posting
	for _, p := range s.postings {
		if p.AccountID == accountID && period.Contains(p.Date) {
			out = append(out, p)
		}
	}
	return out
}

func (s *state) voucherPostings(voucherID string) []ledger.Posting {
	var out []ledger.Posting
	for _, p := range s.postings {
		if p.VoucherID == voucherID {
			out = append(out, p)
		}
	}
	return out
}
