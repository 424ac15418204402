package command

import (
	"context"
	"sync"

	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/subscription"
	"github.com/nekolog/wellness-hub/internal/domain/wellness"
)

// In-memory fakes for the repository and service ports the handlers use.

type memDailyRepo struct {
	state   wellness.DailyState
	loadErr error
	saveErr error
	saves   int
}

func (r *memDailyRepo) LoadDailyState(ctx context.Context) (wellness.DailyState, error) {
	if r.loadErr != nil {
		return wellness.DefaultDailyState(), r.loadErr
	}
	return r.state, nil
}

func (r *memDailyRepo) SaveDailyState(ctx context.Context, state wellness.DailyState) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.state = state
	r.saves++
	return nil
}

type staticProfile struct {
	cat  shared.CatName
	addr shared.Address
}

func (p staticProfile) Profile(ctx context.Context) (shared.CatName, shared.Address, error) {
	return p.cat, p.addr, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) countOf(t shared.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.EventType() == t {
			n++
		}
	}
	return n
}

type memBalanceRepo struct {
	balance shared.Treats
}

func (r *memBalanceRepo) LoadBalance(ctx context.Context) (shared.Treats, error) {
	return r.balance, nil
}

func (r *memBalanceRepo) SaveBalance(ctx context.Context, balance shared.Treats) error {
	r.balance = balance
	return nil
}

type memGateRepo struct {
	state reward.GateState
}

func (r *memGateRepo) LoadGateState(ctx context.Context) (reward.GateState, error) {
	return r.state, nil
}

func (r *memGateRepo) SaveGateState(ctx context.Context, state reward.GateState) error {
	r.state = state
	return nil
}

type memSnapshotRepo struct {
	snapshot subscription.Snapshot
}

func (r *memSnapshotRepo) LoadSnapshot(ctx context.Context) (subscription.Snapshot, error) {
	return r.snapshot, nil
}

func (r *memSnapshotRepo) SaveSnapshot(ctx context.Context, snapshot subscription.Snapshot) error {
	r.snapshot = snapshot
	return nil
}

type memCreditedRepo struct {
	credited map[string]int
}

func newMemCreditedRepo() *memCreditedRepo {
	return &memCreditedRepo{credited: make(map[string]int)}
}

func (r *memCreditedRepo) IsCredited(ctx context.Context, transactionID string) (bool, error) {
	_, ok := r.credited[transactionID]
	return ok, nil
}

func (r *memCreditedRepo) MarkCredited(ctx context.Context, transactionID string, amount int) error {
	if _, ok := r.credited[transactionID]; ok {
		return nil
	}
	r.credited[transactionID] = amount
	return nil
}

type fakePurchaseService struct {
	txn subscription.Transaction
	err error
}

func (s fakePurchaseService) Purchase(ctx context.Context, productID string) (subscription.Transaction, error) {
	if s.err != nil {
		return subscription.Transaction{}, s.err
	}
	return s.txn, nil
}

type fakeEntitlementSource struct {
	txns []subscription.Transaction
	err  error
}

func (s fakeEntitlementSource) CurrentEntitlements(ctx context.Context, productID string) ([]subscription.Transaction, error) {
	return s.txns, s.err
}

type memStepSource struct {
	counts map[string]int
	err    error
}

func (s *memStepSource) DailySteps(ctx context.Context, day shared.Day) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.counts[day.String()], nil
}

type memStepCache struct {
	counts map[string]int
}

func newMemStepCache() *memStepCache {
	return &memStepCache{counts: make(map[string]int)}
}

func (c *memStepCache) SetDailySteps(ctx context.Context, day shared.Day, steps int) error {
	c.counts[day.String()] = steps
	return nil
}

type historyRecord struct {
	day   shared.Day
	score shared.Score
	steps int
}

type memHistory struct {
	records []historyRecord
}

func (h *memHistory) RecordScore(ctx context.Context, day shared.Day, score shared.Score, steps int) error {
	h.records = append(h.records, historyRecord{day: day, score: score, steps: steps})
	return nil
}

type memFlagClearer struct {
	cleared []string
}

func (f *memFlagClearer) ClearDayFlags(ctx context.Context, day shared.Day) error {
	f.cleared = append(f.cleared, day.String())
	return nil
}
