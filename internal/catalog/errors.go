// internal/catalog/errors.go
package catalog

import "errors"

var (
	// ErrDuplicateID reports an ID collision on AddBook or RegisterMember.
	ErrDuplicateID = errors.New("id already exists")

	// ErrNotFound reports a book or member ID unknown to the catalog.
	ErrNotFound = errors.New("not found")

	// ErrNoCopiesAvailable reports a borrow attempt with no free copies.
	ErrNoCopiesAvailable = errors.New("no copies available")

	// ErrAlreadyBorrowed reports a borrow attempt by a member who already
	// holds an unreturned copy of the same title.
	ErrAlreadyBorrowed = errors.New("member already holds this book")

	// ErrNoActiveLoan reports a return attempt with no matching open loan.
	ErrNoActiveLoan = errors.New("no active loan for this book")

	// ErrInvalidCopies reports a copy count below one.
	ErrInvalidCopies = errors.New("copy count must be at least 1")
)
