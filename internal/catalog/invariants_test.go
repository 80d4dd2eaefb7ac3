// internal/catalog/invariants_test.go
package catalog_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"librarium/internal/catalog"
)

// catalogMachine drives a random sequence of operations against a live
// service and checks the structural invariants after each step.
type catalogMachine struct {
	svc   catalog.Service
	clock *fakeClock
	ctx   context.Context

	bookIDs   []string
	memberIDs []string
}

func (m *catalogMachine) init(t *rapid.T) {
	m.clock = newFakeClock()
	svc, err := catalog.NewService(catalog.WithClock(m.clock.Now))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	m.svc = svc
	m.ctx = context.Background()
}

func (m *catalogMachine) addBook(t *rapid.T) {
	id := fmt.Sprintf("B%03d", len(m.bookIDs)+1)
	copies := rapid.IntRange(1, 5).Draw(t, "copies")
	if _, err := m.svc.AddBook(m.ctx, id, "Title "+id, "Author "+id, "isbn-"+id, copies); err != nil {
		t.Fatalf("add book: %v", err)
	}
	m.bookIDs = append(m.bookIDs, id)
}

func (m *catalogMachine) registerMember(t *rapid.T) {
	id := fmt.Sprintf("M%03d", len(m.memberIDs)+1)
	if _, err := m.svc.RegisterMember(m.ctx, id, "Member "+id, id+"@example.com", "555-0000"); err != nil {
		t.Fatalf("register member: %v", err)
	}
	m.memberIDs = append(m.memberIDs, id)
}

func (m *catalogMachine) borrow(t *rapid.T) {
	if len(m.bookIDs) == 0 || len(m.memberIDs) == 0 {
		t.Skip("need a book and a member")
	}
	bookID := rapid.SampledFrom(m.bookIDs).Draw(t, "book")
	memberID := rapid.SampledFrom(m.memberIDs).Draw(t, "member")

	// A rejected borrow is a valid outcome; the invariants below verify
	// it left no trace.
	m.svc.BorrowBook(m.ctx, memberID, bookID)
}

func (m *catalogMachine) returnBook(t *rapid.T) {
	if len(m.bookIDs) == 0 || len(m.memberIDs) == 0 {
		t.Skip("need a book and a member")
	}
	bookID := rapid.SampledFrom(m.bookIDs).Draw(t, "book")
	memberID := rapid.SampledFrom(m.memberIDs).Draw(t, "member")
	m.svc.ReturnBook(m.ctx, memberID, bookID)
}

func (m *catalogMachine) advanceClock(t *rapid.T) {
	days := rapid.IntRange(1, 30).Draw(t, "days")
	m.clock.Advance(time.Duration(days) * 24 * time.Hour)
}

func (m *catalogMachine) check(t *rapid.T) {
	books := m.svc.Books(m.ctx)
	members := m.svc.Members(m.ctx)

	// Every borrower list entry must match one open loan; count the open
	// loans per book across all members for the cross-check.
	openLoans := make(map[string]int)
	for _, member := range members {
		activePerBook := make(map[string]int)
		for _, record := range member.BorrowedBooks {
			if record.Returned {
				if record.ReturnDate == nil {
					t.Fatalf("member %s: returned record for %s has no return date",
						member.MemberID, record.BookID)
				}
				continue
			}
			activePerBook[record.BookID]++
			openLoans[record.BookID]++
		}
		for bookID, n := range activePerBook {
			if n > 1 {
				t.Fatalf("member %s holds %d open loans for %s", member.MemberID, n, bookID)
			}
		}
	}

	for _, book := range books {
		if book.AvailableCopies < 0 || book.AvailableCopies > book.TotalCopies {
			t.Fatalf("book %s: %d of %d copies available",
				book.BookID, book.AvailableCopies, book.TotalCopies)
		}
		borrowed := book.TotalCopies - book.AvailableCopies
		if len(book.BorrowedBy) != borrowed {
			t.Fatalf("book %s: %d borrowers listed but %d copies out",
				book.BookID, len(book.BorrowedBy), borrowed)
		}
		if openLoans[book.BookID] != borrowed {
			t.Fatalf("book %s: %d open member loans but %d copies out",
				book.BookID, openLoans[book.BookID], borrowed)
		}
	}
}

func TestCatalogInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := &catalogMachine{}
		m.init(t)
		t.Repeat(map[string]func(*rapid.T){
			"addBook":        m.addBook,
			"registerMember": m.registerMember,
			"borrow":         m.borrow,
			"return":         m.returnBook,
			"advanceClock":   m.advanceClock,
			"":               m.check,
		})
	})
}

func TestSnapshotRoundTripPreservesState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := &catalogMachine{}
		m.init(t)

		steps := rapid.IntRange(0, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0:
				m.addBook(t)
			case 1:
				m.registerMember(t)
			case 2:
				if len(m.bookIDs) > 0 && len(m.memberIDs) > 0 {
					m.svc.BorrowBook(m.ctx,
						rapid.SampledFrom(m.memberIDs).Draw(t, "member"),
						rapid.SampledFrom(m.bookIDs).Draw(t, "book"))
				}
			case 3:
				if len(m.bookIDs) > 0 && len(m.memberIDs) > 0 {
					m.svc.ReturnBook(m.ctx,
						rapid.SampledFrom(m.memberIDs).Draw(t, "member"),
						rapid.SampledFrom(m.bookIDs).Draw(t, "book"))
				}
			case 4:
				m.advanceClock(t)
			}
		}

		snap := m.svc.Snapshot(m.ctx)

		restored, err := catalog.NewService(catalog.WithClock(m.clock.Now))
		require.NoError(t, err)
		require.NoError(t, restored.Restore(m.ctx, snap))

		require.Equal(t, m.svc.Books(m.ctx), restored.Books(m.ctx))
		require.Equal(t, m.svc.Members(m.ctx), restored.Members(m.ctx))
		require.Equal(t, m.svc.History(m.ctx), restored.History(m.ctx))
		require.Equal(t, m.svc.Statistics(m.ctx), restored.Statistics(m.ctx))
	})
}
