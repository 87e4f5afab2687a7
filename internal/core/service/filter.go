package service

import (
	"fmt"
	"strings"

	"github.com/yndnr/libcat-go/internal/core/domain"
)

// StatusFilter selects books by circulation state.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusAvailable StatusFilter = "available"
	StatusBorrowed  StatusFilter = "borrowed"
)

// ParseStatusFilter parses a filter name; "" means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", StatusAll:
		return StatusAll, nil
	case StatusAvailable, StatusBorrowed:
		return f, nil
	default:
		return "", domain.ErrValidation.WithDetails(fmt.Sprintf("unknown status filter %q (want all, available or borrowed)", s))
	}
}

// BookFilter narrows a book list.
type BookFilter struct {
	// Query matches title, author or ISBN, case-insensitively.
	Query  string
	Status StatusFilter
}

// FilterBooks returns the books matching f, preserving order.
func FilterBooks(books []domain.Book, f BookFilter) []domain.Book {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Book, 0, len(books))
	for _, b := range books {
		if q != "" &&
			!strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.Author), q) &&
			!strings.Contains(strings.ToLower(b.ISBN), q) {
			continue
		}
		switch f.Status {
		case StatusAvailable:
			if b.Status != domain.BookAvailable {
				continue
			}
		case StatusBorrowed:
			if b.Status != domain.BookBorrowed {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// FilterUsers returns users whose name or email contains query.
func FilterUsers(users []domain.User, query string) []domain.User {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return users
	}
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	return out
}

// Summary counts books by state.
type Summary struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Borrowed  int `json:"borrowed"`
}

// Summarize counts books by status.
func Summarize(books []domain.Book) Summary {
	s := Summary{Total: len(books)}
	for _, b := range books {
		switch b.Status {
		case domain.BookAvailable:
			s.Available++
		case domain.BookBorrowed:
			s.Borrowed++
		}
	}
	return s
}
