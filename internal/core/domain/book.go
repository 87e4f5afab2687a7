// Package domain defines the core domain models for the library console.
package domain

// BookStatus is the circulation state of a book.
type BookStatus string

const (
	BookAvailable BookStatus = "available"
	BookBorrowed  BookStatus = "borrowed"
)

// Book is a catalog entry.
type Book struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	ISBN       string     `json:"isbn,omitempty"`
	Publisher  string     `json:"publisher,omitempty" table:"wide"`
	Status     BookStatus `json:"status"`
	BorrowedBy *int64     `json:"borrowed_by,omitempty" table:"wide"`
	BorrowedAt string     `json:"borrowed_at,omitempty" table:"wide"`
	ReturnDate string     `json:"return_date,omitempty"`
}

// Available reports whether the book can be borrowed.
func (b Book) Available() bool {
	return b.Status == BookAvailable
}

// BookInput is the body of POST /books and PUT /books/{id}.
type BookInput struct {
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	ISBN      string     `json:"isbn,omitempty"`
	Publisher string     `json:"publisher,omitempty"`
	Status    BookStatus `json:"status,omitempty"`
}

// ActionResult is the body returned by borrow/return and other mutations.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalBooks     int `json:"totalBooks"`
	TotalUsers     int `json:"totalUsers"`
	AvailableBooks int `json:"availableBooks"`
	BorrowedBooks  int `json:"borrowedBooks"`
}

// AvailabilityPercent returns the share of available books, 0 when empty.
func (s Stats) AvailabilityPercent() float64 {
	if s.TotalBooks <= 0 {
		return 0
	}
	return float64(s.AvailableBooks) / float64(s.TotalBooks) * 100
}

// BorrowRequest is the body of POST /books/{id}/borrow.
type BorrowRequest struct {
	Copies     int    `json:"copies,omitempty"`
	ReturnDate string `json:"return_date,omitempty"`
}
