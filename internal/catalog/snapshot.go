// internal/catalog/snapshot.go
package catalog

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"librarium/internal/audit"
)

// Snapshot is a complete, detached copy of the catalog state. Books and
// members are kept as ordered slices so that a persisted catalog restores
// with its insertion order intact.
type Snapshot struct {
	Name             string
	LoanDurationDays int
	Books            []*Book
	Members          []*Member
	History          []audit.Entry
}

// Snapshot captures the full catalog state for persistence.
func (s *service) Snapshot(ctx context.Context) *Snapshot {
	_, span := s.tracer.Start(ctx, "catalog.snapshot")
	defer span.End()

	// The history is captured under the catalog lock so that the snapshot
	// cannot show a loan in book or member state without its log entry.
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Name:             s.name,
		LoanDurationDays: s.loanDays,
		Books:            make([]*Book, 0, len(s.bookOrder)),
		Members:          make([]*Member, 0, len(s.memberOrder)),
		History:          s.history.All(ctx),
	}
	for _, id := range s.bookOrder {
		snap.Books = append(snap.Books, s.books[id].clone())
	}
	for _, id := range s.memberOrder {
		snap.Members = append(snap.Members, s.members[id].clone())
	}

	span.SetAttributes(
		attribute.Int("snapshot.books", len(snap.Books)),
		attribute.Int("snapshot.members", len(snap.Members)),
		attribute.Int("snapshot.history", len(snap.History)),
	)
	return snap
}

// Restore replaces the catalog state wholesale with snap. There is no merge:
// on success the previous state is gone, and on error the previous state is
// untouched.
func (s *service) Restore(ctx context.Context, snap *Snapshot) error {
	_, span := s.tracer.Start(ctx, "catalog.restore")
	defer span.End()

	if snap == nil {
		return fmt.Errorf("restore: nil snapshot")
	}

	books := make(map[string]*Book, len(snap.Books))
	bookOrder := make([]string, 0, len(snap.Books))
	for _, b := range snap.Books {
		if b.BookID == "" {
			return fmt.Errorf("restore: book with empty id")
		}
		if _, ok := books[b.BookID]; ok {
			return fmt.Errorf("restore: book %q: %w", b.BookID, ErrDuplicateID)
		}
		if b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
			return fmt.Errorf("restore: book %q has %d of %d copies available",
				b.BookID, b.AvailableCopies, b.TotalCopies)
		}
		books[b.BookID] = b.clone()
		bookOrder = append(bookOrder, b.BookID)
	}

	members := make(map[string]*Member, len(snap.Members))
	memberOrder := make([]string, 0, len(snap.Members))
	for _, m := range snap.Members {
		if m.MemberID == "" {
			return fmt.Errorf("restore: member with empty id")
		}
		if _, ok := members[m.MemberID]; ok {
			return fmt.Errorf("restore: member %q: %w", m.MemberID, ErrDuplicateID)
		}
		members[m.MemberID] = m.clone()
		memberOrder = append(memberOrder, m.MemberID)
	}

	// Cross-check circulation state. Every open loan must land on a known
	// book, and each book's availability and borrower list must agree with
	// the loans held against it; otherwise the restored catalog would
	// violate the availability invariant on the next borrow or return.
	holders := make(map[string]map[string]int, len(books))
	for _, m := range snap.Members {
		for _, r := range m.BorrowedBooks {
			if r.Returned {
				continue
			}
			if _, ok := books[r.BookID]; !ok {
				return fmt.Errorf("restore: member %q holds unknown book %q: %w",
					m.MemberID, r.BookID, ErrNotFound)
			}
			if holders[r.BookID] == nil {
				holders[r.BookID] = make(map[string]int)
			}
			holders[r.BookID][m.MemberID]++
			if holders[r.BookID][m.MemberID] > 1 {
				return fmt.Errorf("restore: member %q holds two open loans for book %q",
					m.MemberID, r.BookID)
			}
		}
	}
	for id, b := range books {
		out := b.TotalCopies - b.AvailableCopies
		active := 0
		for _, n := range holders[id] {
			active += n
		}
		if active != out || len(b.BorrowedBy) != out {
			return fmt.Errorf("restore: book %q has %d of %d copies available but %d open loans and %d listed borrowers",
				id, b.AvailableCopies, b.TotalCopies, active, len(b.BorrowedBy))
		}
		for _, memberID := range b.BorrowedBy {
			holders[id][memberID]--
		}
		for memberID, n := range holders[id] {
			if n != 0 {
				return fmt.Errorf("restore: book %q borrower list does not match member %q's open loans",
					id, memberID)
			}
		}
	}

	loanDays := snap.LoanDurationDays
	if loanDays < 1 {
		loanDays = defaultLoanDurationDays
	}
	name := snap.Name
	if name == "" {
		name = defaultName
	}

	s.mu.Lock()
	s.name = name
	s.loanDays = loanDays
	s.books = books
	s.bookOrder = bookOrder
	s.members = members
	s.memberOrder = memberOrder
	s.history.Replace(ctx, snap.History)
	s.mu.Unlock()

	return nil
}
