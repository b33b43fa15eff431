package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/storage/memory"
)

var testNow = time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func eur(s string) core.Money { return core.MustMoney(s, "EUR") }

func eurPtr(s string) *core.Money {
	m := eur(s)
	return &m
}

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func (p *recordingPublisher) count(eventType string) int {
	n := 0
	for _, typ := range p.types() {
		if typ == eventType {
			n++
		}
	}
	return n
}

type harness struct {
	ledger   *Ledger
	store    *memory.Store
	events   *recordingPublisher
	progress *cache.LRUCache[[]core.CategoryProgress]
	seq      int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    memory.New(),
		events:   &recordingPublisher{},
		progress: cache.NewLRUCache[[]core.CategoryProgress](16, time.Hour),
	}
	l, err := NewLedger(h.store, "eur", LedgerOptions{
		Events:   h.events,
		Progress: h.progress,
		Now:      clock,
	})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	h.ledger = l
	return h
}

// category creates an active category for owner u1. An empty limit means
// no limit.
func (h *harness) category(t *testing.T, name string, typ core.TransactionType, p core.Priority, limit string) core.Category {
	t.Helper()
	c := core.Category{OwnerID: "u1", Name: name, Type: typ, Priority: p}
	if limit != "" {
		c.Limit = eurPtr(limit)
	}
	created, err := h.ledger.Categories.Create(context.Background(), c)
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return created
}

// seed writes a transaction straight to the store, bypassing the gate and
// the rules.
func (h *harness) seed(t *testing.T, c core.Category, amount string, d time.Time) core.Transaction {
	t.Helper()
	h.seq++
	tx := core.Transaction{
		ID:          fmt.Sprintf("seed-%d", h.seq),
		OwnerID:     c.OwnerID,
		CategoryID:  c.ID,
		Description: "seed",
		Value:       eur(amount),
		Type:        c.Type,
		Date:        d,
		CreatedAt:   testNow,
	}
	if err := h.store.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tx
}

func newTransaction(c core.Category, amount string, d time.Time) core.Transaction {
	return core.Transaction{
		OwnerID:     c.OwnerID,
		CategoryID:  c.ID,
		Description: "purchase",
		Value:       eur(amount),
		Type:        c.Type,
		Date:        d,
	}
}

func TestNewLedger_RejectsBadInput(t *testing.T) {
	if _, err := NewLedger(nil, "EUR", LedgerOptions{}); err == nil {
		t.Error("expected error without repository")
	}
	if _, err := NewLedger(memory.New(), "", LedgerOptions{}); err == nil {
		t.Error("expected error without currency")
	}
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.events.err = fmt.Errorf("broker down")

	c := h.category(t, "Salary", core.Income, core.Essential, "")
	if _, err := h.ledger.Transactions.Create(context.Background(), newTransaction(c, "100", date(2024, 2, 1))); err != nil {
		t.Fatalf("create should succeed when publishing fails: %v", err)
	}
}

func TestNilPublisher(t *testing.T) {
	l, err := NewLedger(memory.New(), "EUR", LedgerOptions{Now: clock})
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	if _, err := l.Closures.Close(context.Background(), "u1", core.MustYearMonth("2024-01"), ""); err != nil {
		t.Fatalf("close without publisher: %v", err)
	}
}
