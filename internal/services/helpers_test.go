package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/storage/memory"
)

const testOwner = "user-1"

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev *amqp.Event) error {
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
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func int64Ptr(v int64) *int64 { return &v }

func datePtr(y, m, d int) *core.Date {
	v := core.NewDate(y, m, d)
	return &v
}

func mustCategory(t *testing.T, store *memory.Store, owner string) int64 {
	t.Helper()
	c, err := store.CreateCategory(context.Background(), core.Category{
		OwnerID: owner,
		Name:    "Servicios",
		Type:    core.Expense,
	})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	return c.ID
}

// seedRecurrence stores r as given, bypassing the processor's own scheduling.
func seedRecurrence(t *testing.T, store *memory.Store, r core.Recurrence) core.Recurrence {
	t.Helper()
	if r.OwnerID == "" {
		r.OwnerID = testOwner
	}
	if r.Type == "" {
		r.Type = core.Expense
	}
	if r.StartDate.IsZero() {
		r.StartDate = r.NextExecution
	}
	saved, err := store.CreateRecurrence(context.Background(), r)
	if err != nil {
		t.Fatalf("CreateRecurrence() error = %v", err)
	}
	return saved
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
}
