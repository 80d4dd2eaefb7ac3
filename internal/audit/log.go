// internal/audit/log.go
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Action identifies the kind of circulation event recorded in the log.
type Action string

const (
	ActionBorrow Action = "borrow"
	ActionReturn Action = "return"
)

// Entry is one immutable record in the borrow history.
type Entry struct {
	ID       uuid.UUID `json:"id"`
	Action   Action    `json:"action"`
	MemberID string    `json:"member_id"`
	BookID   string    `json:"book_id"`
	Date     time.Time `json:"date"`
}

// Log is an append-only, in-process history of borrow and return actions.
// Entries are never updated or removed; the log is consulted for audit and
// reporting only, never to derive availability.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	tracer  trace.Tracer
}

// NewLog creates an empty history log.
func NewLog() *Log {
	return &Log{
		tracer: otel.Tracer("librarium/audit"),
	}
}

// Append records a new action and returns the stored entry.
func (l *Log) Append(ctx context.Context, action Action, memberID, bookID string, date time.Time) Entry {
	_, span := l.tracer.Start(ctx, "audit.append",
		trace.WithAttributes(
			attribute.String("audit.action", string(action)),
			attribute.String("member.id", memberID),
			attribute.String("book.id", bookID),
		),
	)
	defer span.End()

	entry := Entry{
		ID:       uuid.New(),
		Action:   action,
		MemberID: memberID,
		BookID:   bookID,
		Date:     date,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	span.SetAttributes(attribute.Int("audit.size", len(l.entries)))
	l.mu.Unlock()

	return entry
}

// All returns a copy of every entry in append order.
func (l *Log) All(ctx context.Context) []Entry {
	_, span := l.tracer.Start(ctx, "audit.all")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	span.SetAttributes(attribute.Int("audit.size", len(out)))
	return out
}

// ByMember returns the entries recorded for one member, in append order.
func (l *Log) ByMember(ctx context.Context, memberID string) []Entry {
	return l.filter(ctx, "audit.by_member", func(e Entry) bool { return e.MemberID == memberID })
}

// ByBook returns the entries recorded for one book, in append order.
func (l *Log) ByBook(ctx context.Context, bookID string) []Entry {
	return l.filter(ctx, "audit.by_book", func(e Entry) bool { return e.BookID == bookID })
}

func (l *Log) filter(ctx context.Context, spanName string, keep func(Entry) bool) []Entry {
	_, span := l.tracer.Start(ctx, spanName)
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	span.SetAttributes(attribute.Int("audit.matched", len(out)))
	return out
}

// Len reports the number of entries in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Replace discards the current contents and installs entries wholesale.
// Used when a persisted catalog is loaded back into memory.
func (l *Log) Replace(ctx context.Context, entries []Entry) {
	_, span := l.tracer.Start(ctx, "audit.replace",
		trace.WithAttributes(attribute.Int("audit.size", len(entries))),
	)
	defer span.End()

	l.mu.Lock()
	l.entries = make([]Entry, len(entries))
	copy(l.entries, entries)
	l.mu.Unlock()
}
