// internal/catalog/service.go
package catalog

import (
	"context"
	"iter"

	"librarium/internal/audit"
)

// Service defines the interface for the catalog service. All operations are
// synchronous and safe for concurrent use; errors from the taxonomy in
// errors.go are returned, never raised.
type Service interface {
	AddBook(ctx context.Context, bookID, title, author, isbn string, copies int) (*Book, error)
	GetBook(ctx context.Context, bookID string) (*Book, error)
	Books(ctx context.Context) []*Book
	SearchByTitle(ctx context.Context, query string) iter.Seq[*Book]
	SearchByAuthor(ctx context.Context, query string) iter.Seq[*Book]

	RegisterMember(ctx context.Context, memberID, name, email, phone string) (*Member, error)
	GetMember(ctx context.Context, memberID string) (*Member, error)
	Members(ctx context.Context) []*Member

	BorrowBook(ctx context.Context, memberID, bookID string) (*BorrowRecord, error)
	ReturnBook(ctx context.Context, memberID, bookID string) (*ReturnResult, error)
	MemberLoans(ctx context.Context, memberID string) ([]Loan, error)

	OverdueReport(ctx context.Context) iter.Seq[OverdueEntry]
	Statistics(ctx context.Context) Stats
	History(ctx context.Context) []audit.Entry

	Snapshot(ctx context.Context) *Snapshot
	Restore(ctx context.Context, snap *Snapshot) error
}
