// internal/catalog/reporting.go
package catalog

import (
	"context"
	"iter"

	"librarium/internal/audit"
)

// OverdueReport walks every member's active loans and yields the ones past
// due at the moment of the call. Pure read: members in registration order,
// records in borrow order within each member. Restartable like the search
// sequences.
func (s *service) OverdueReport(ctx context.Context) iter.Seq[OverdueEntry] {
	return func(yield func(OverdueEntry) bool) {
		s.mu.Lock()
		entries := s.overdueLocked()
		s.mu.Unlock()

		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}
}

// overdueLocked collects the overdue entries. Caller holds s.mu.
func (s *service) overdueLocked() []OverdueEntry {
	now := s.now()
	var entries []OverdueEntry
	for _, memberID := range s.memberOrder {
		member := s.members[memberID]
		for _, record := range member.BorrowedBooks {
			if record.Returned || !now.After(record.DueDate) {
				continue
			}
			entries = append(entries, OverdueEntry{
				MemberName:  member.Name,
				BookTitle:   s.books[record.BookID].Title,
				DaysOverdue: daysOverdue(now, record.DueDate),
				DueDate:     record.DueDate,
			})
		}
	}
	return entries
}

// Statistics recomputes the catalog counters. The dataset is small, so no
// caching is attempted. All counters, the overdue count included, come from
// one lock acquisition so they describe a single point in time.
func (s *service) Statistics(ctx context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		TotalTitles:  len(s.books),
		TotalMembers: len(s.members),
		OverdueCount: len(s.overdueLocked()),
	}
	for _, book := range s.books {
		stats.TotalCopies += book.TotalCopies
		stats.AvailableCopies += book.AvailableCopies
	}
	stats.BorrowedCopies = stats.TotalCopies - stats.AvailableCopies
	return stats
}

// History returns the full borrow/return audit trail in append order.
func (s *service) History(ctx context.Context) []audit.Entry {
	return s.history.All(ctx)
}
