// internal/catalog/options.go
package catalog

import (
	"errors"
	"time"
)

// Option defines a functional option for configuring the catalog service.
type Option func(*service) error

// WithName sets the catalog's display name.
func WithName(name string) Option {
	return func(s *service) error {
		if name == "" {
			return errors.New("catalog name must not be empty")
		}
		s.name = name
		return nil
	}
}

// WithLoanDuration sets the loan period applied to new borrows.
func WithLoanDuration(days int) Option {
	return func(s *service) error {
		if days < 1 {
			return errors.New("loan duration must be at least 1 day")
		}
		s.loanDays = days
		return nil
	}
}

// WithClock sets the time source used for join dates, due dates, and overdue
// checks. Tests use this to run against a virtual clock.
func WithClock(now func() time.Time) Option {
	return func(s *service) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		s.now = now
		return nil
	}
}
