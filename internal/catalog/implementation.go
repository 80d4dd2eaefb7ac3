// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"librarium/internal/audit"
)

const (
	defaultName             = "Central Library"
	defaultLoanDurationDays = 14
)

// service implements the Service interface. It is the aggregate root: it
// exclusively owns the book and member collections and the borrow history,
// and it guards every operation with a single catalog-wide mutex so that the
// multi-step mutations in BorrowBook and ReturnBook are never observable
// half-applied.
type service struct {
	mu sync.Mutex

	name     string
	loanDays int

	books       map[string]*Book
	bookOrder   []string
	members     map[string]*Member
	memberOrder []string
	history     *audit.Log

	now    func() time.Time
	tracer trace.Tracer
}

// NewService creates an empty catalog service instance.
func NewService(opts ...Option) (Service, error) {
	s := &service{
		name:     defaultName,
		loanDays: defaultLoanDurationDays,
		books:    make(map[string]*Book),
		members:  make(map[string]*Member),
		history:  audit.NewLog(),
		now:      time.Now,
		tracer:   otel.Tracer("librarium/catalog"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("configure catalog: %w", err)
		}
	}

	return s, nil
}

// AddBook creates a new title with copies available copies.
func (s *service) AddBook(ctx context.Context, bookID, title, author, isbn string, copies int) (*Book, error) {
	if copies < 1 {
		return nil, fmt.Errorf("add book %q: %w", bookID, ErrInvalidCopies)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[bookID]; ok {
		return nil, fmt.Errorf("book %q: %w", bookID, ErrDuplicateID)
	}

	book := &Book{
		BookID:          bookID,
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		TotalCopies:     copies,
		AvailableCopies: copies,
		BorrowedBy:      []string{},
	}
	s.books[bookID] = book
	s.bookOrder = append(s.bookOrder, bookID)

	return book.clone(), nil
}

// GetBook retrieves a book by its ID.
func (s *service) GetBook(ctx context.Context, bookID string) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return nil, fmt.Errorf("book %q: %w", bookID, ErrNotFound)
	}
	return book.clone(), nil
}

// Books lists every title in insertion order.
func (s *service) Books(ctx context.Context) []*Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Book, 0, len(s.bookOrder))
	for _, id := range s.bookOrder {
		out = append(out, s.books[id].clone())
	}
	return out
}

// SearchByTitle matches titles by case-insensitive substring. The empty
// query matches every book. The sequence is finite and restartable: each
// iteration pass re-evaluates against the current catalog.
func (s *service) SearchByTitle(ctx context.Context, query string) iter.Seq[*Book] {
	return s.search(query, func(b *Book) string { return b.Title })
}

// SearchByAuthor matches authors by case-insensitive substring, with the
// same semantics as SearchByTitle.
func (s *service) SearchByAuthor(ctx context.Context, query string) iter.Seq[*Book] {
	return s.search(query, func(b *Book) string { return b.Author })
}

func (s *service) search(query string, field func(*Book) string) iter.Seq[*Book] {
	needle := strings.ToLower(query)
	return func(yield func(*Book) bool) {
		// Matches are collected under the lock and yielded outside it, so a
		// consumer calling back into the service cannot deadlock.
		s.mu.Lock()
		var matches []*Book
		for _, id := range s.bookOrder {
			book := s.books[id]
			if strings.Contains(strings.ToLower(field(book)), needle) {
				matches = append(matches, book.clone())
			}
		}
		s.mu.Unlock()

		for _, book := range matches {
			if !yield(book) {
				return
			}
		}
	}
}

// RegisterMember creates a new patron with an empty loan history.
func (s *service) RegisterMember(ctx context.Context, memberID, name, email, phone string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[memberID]; ok {
		return nil, fmt.Errorf("member %q: %w", memberID, ErrDuplicateID)
	}

	member := &Member{
		MemberID:      memberID,
		Name:          name,
		Email:         email,
		Phone:         phone,
		JoinDate:      s.now(),
		BorrowedBooks: []BorrowRecord{},
	}
	s.members[memberID] = member
	s.memberOrder = append(s.memberOrder, memberID)

	return member.clone(), nil
}

// GetMember retrieves a member by their ID.
func (s *service) GetMember(ctx context.Context, memberID string) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %q: %w", memberID, ErrNotFound)
	}
	return member.clone(), nil
}

// Members lists every patron in registration order.
func (s *service) Members(ctx context.Context) []*Member {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Member, 0, len(s.memberOrder))
	for _, id := range s.memberOrder {
		out = append(out, s.members[id].clone())
	}
	return out
}

// BorrowBook lends one copy of bookID to memberID. The availability
// decrement, the book's borrower list, the member's loan record, and the
// history entry are applied as one unit under the catalog lock; a failed
// validation leaves no trace.
func (s *service) BorrowBook(ctx context.Context, memberID, bookID string) (*BorrowRecord, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.borrow",
		trace.WithAttributes(
			attribute.String("member.id", memberID),
			attribute.String("book.id", bookID),
		),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %q: %w", memberID, ErrNotFound)
	}
	book, ok := s.books[bookID]
	if !ok {
		return nil, fmt.Errorf("book %q: %w", bookID, ErrNotFound)
	}

	if book.AvailableCopies == 0 {
		return nil, fmt.Errorf("book %q: %w", bookID, ErrNoCopiesAvailable)
	}
	if member.activeRecord(bookID) != nil {
		return nil, fmt.Errorf("member %q, book %q: %w", memberID, bookID, ErrAlreadyBorrowed)
	}

	borrowDate := s.now()
	record := BorrowRecord{
		BookID:     bookID,
		BorrowDate: borrowDate,
		DueDate:    borrowDate.AddDate(0, 0, s.loanDays),
	}

	book.AvailableCopies--
	book.BorrowedBy = append(book.BorrowedBy, memberID)
	member.BorrowedBooks = append(member.BorrowedBooks, record)
	s.history.Append(ctx, audit.ActionBorrow, memberID, bookID, borrowDate)

	span.SetAttributes(attribute.Int("book.available", book.AvailableCopies))
	return &record, nil
}

// ReturnBook closes the member's open loan for bookID. A late return is
// still accepted; the result reports how many days overdue it was.
func (s *service) ReturnBook(ctx context.Context, memberID, bookID string) (*ReturnResult, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.return",
		trace.WithAttributes(
			attribute.String("member.id", memberID),
			attribute.String("book.id", bookID),
		),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %q: %w", memberID, ErrNotFound)
	}
	book, ok := s.books[bookID]
	if !ok {
		return nil, fmt.Errorf("book %q: %w", bookID, ErrNotFound)
	}

	record := member.activeRecord(bookID)
	if record == nil {
		return nil, fmt.Errorf("member %q, book %q: %w", memberID, bookID, ErrNoActiveLoan)
	}

	returnDate := s.now()
	book.AvailableCopies++
	for i, id := range book.BorrowedBy {
		if id == memberID {
			book.BorrowedBy = append(book.BorrowedBy[:i], book.BorrowedBy[i+1:]...)
			break
		}
	}
	record.Returned = true
	record.ReturnDate = &returnDate
	s.history.Append(ctx, audit.ActionReturn, memberID, bookID, returnDate)

	result := &ReturnResult{
		BookID:      bookID,
		BookTitle:   book.Title,
		MemberID:    memberID,
		MemberName:  member.Name,
		DueDate:     record.DueDate,
		ReturnDate:  returnDate,
		DaysOverdue: daysOverdue(returnDate, record.DueDate),
	}
	span.SetAttributes(
		attribute.Int("book.available", book.AvailableCopies),
		attribute.Int("loan.days_overdue", result.DaysOverdue),
	)
	return result, nil
}

// MemberLoans lists the member's active loans in borrow order, with their
// current overdue status.
func (s *service) MemberLoans(ctx context.Context, memberID string) ([]Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberID]
	if !ok {
		return nil, fmt.Errorf("member %q: %w", memberID, ErrNotFound)
	}

	now := s.now()
	var loans []Loan
	for _, record := range member.BorrowedBooks {
		if record.Returned {
			continue
		}
		loans = append(loans, Loan{
			BookID:      record.BookID,
			BookTitle:   s.books[record.BookID].Title,
			BorrowDate:  record.BorrowDate,
			DueDate:     record.DueDate,
			DaysOverdue: daysOverdue(now, record.DueDate),
		})
	}
	return loans, nil
}

// daysOverdue reports how many whole days now is past due. Zero when the
// loan is not yet due.
func daysOverdue(now, due time.Time) int {
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due).Hours() / 24)
}
