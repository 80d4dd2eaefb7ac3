// internal/catalog/domain.go
package catalog

import (
	"time"
)

// Book represents one catalogued title and its circulating copies.
type Book struct {
	BookID          string `json:"book_id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	// BorrowedBy lists the IDs of the members currently holding a copy, one
	// occurrence per copy held. Its length always equals
	// TotalCopies - AvailableCopies.
	BorrowedBy []string `json:"borrowed_by"`
}

func (b *Book) clone() *Book {
	c := *b
	c.BorrowedBy = make([]string, len(b.BorrowedBy))
	copy(c.BorrowedBy, b.BorrowedBy)
	return &c
}

// Member represents one registered patron.
type Member struct {
	MemberID string    `json:"member_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	JoinDate time.Time `json:"join_date"`
	// BorrowedBooks is the member's full loan history in borrow order.
	// Records are appended on borrow and marked returned in place; they are
	// never removed.
	BorrowedBooks []BorrowRecord `json:"borrowed_books"`
}

func (m *Member) clone() *Member {
	c := *m
	c.BorrowedBooks = make([]BorrowRecord, len(m.BorrowedBooks))
	copy(c.BorrowedBooks, m.BorrowedBooks)
	return &c
}

// activeRecord returns the member's unreturned record for bookID, if any.
func (m *Member) activeRecord(bookID string) *BorrowRecord {
	for i := range m.BorrowedBooks {
		if m.BorrowedBooks[i].BookID == bookID && !m.BorrowedBooks[i].Returned {
			return &m.BorrowedBooks[i]
		}
	}
	return nil
}

// BorrowRecord is one loan of one book copy to one member.
type BorrowRecord struct {
	BookID     string    `json:"book_id"`
	BorrowDate time.Time `json:"borrow_date"`
	DueDate    time.Time `json:"due_date"`
	Returned   bool      `json:"returned"`
	// ReturnDate is set exactly once, when the loan is closed.
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// ReturnResult describes the outcome of a successful return. DaysOverdue is
// informational: a late return still succeeds.
type ReturnResult struct {
	BookID      string    `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	MemberID    string    `json:"member_id"`
	MemberName  string    `json:"member_name"`
	DueDate     time.Time `json:"due_date"`
	ReturnDate  time.Time `json:"return_date"`
	DaysOverdue int       `json:"days_overdue"`
}

// Loan is a member's active loan as presented by MemberLoans.
type Loan struct {
	BookID      string    `json:"book_id"`
	BookTitle   string    `json:"book_title"`
	BorrowDate  time.Time `json:"borrow_date"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

// OverdueEntry is one row of the overdue report.
type OverdueEntry struct {
	MemberName  string    `json:"member_name"`
	BookTitle   string    `json:"book_title"`
	DaysOverdue int       `json:"days_overdue"`
	DueDate     time.Time `json:"due_date"`
}

// Stats holds the derived counters reported by Statistics. They are
// recomputed on every call; nothing is cached.
type Stats struct {
	TotalTitles     int `json:"total_titles"`
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
	BorrowedCopies  int `json:"borrowed_copies"`
	TotalMembers    int `json:"total_members"`
	OverdueCount    int `json:"overdue_count"`
}
