package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/core/session"
)

// Library is the catalog API surface used by Catalog.
type Library interface {
	Books(ctx context.Context, token string) ([]domain.Book, error)
	AvailableBooks(ctx context.Context, token string) ([]domain.Book, error)
	BorrowedBooks(ctx context.Context, token string) ([]domain.Book, error)
	CreateBook(ctx context.Context, token string, in domain.BookInput) error
	UpdateBook(ctx context.Context, token string, id int64, in domain.BookInput) error
	DeleteBook(ctx context.Context, token string, id int64) error
	Borrow(ctx context.Context, token string, id int64, req domain.BorrowRequest) (*domain.ActionResult, error)
	Return(ctx context.Context, token string, id int64) (*domain.ActionResult, error)

	UpdateProfile(ctx context.Context, token string, in domain.ProfileUpdate) error
	ChangePassword(ctx context.Context, token string, in domain.PasswordChange) error

	Users(ctx context.Context, token string, page int) (*domain.UserPage, error)
	CreateUser(ctx context.Context, token string, in domain.UserInput) error
	UpdateUser(ctx context.Context, token string, id int64, in domain.UserInput) error
	DeleteUser(ctx context.Context, token string, id int64) error
	SetUserStatus(ctx context.Context, token string, id int64, status domain.AccountStatus) error
	Stats(ctx context.Context, token string) (*domain.Stats, error)
}

// Session is the part of the session controller Catalog relies on.
type Session interface {
	Snapshot() session.Snapshot
	CheckAdminAccess() bool
	Invalidate(ctx context.Context)
	Revalidate(ctx context.Context) error
}

// ActionError is a failed catalog call with a user-facing message.
type ActionError struct {
	Message string
	Fields  []string
	Err     error
}

// Error implements the error interface.
func (e *ActionError) Error() string {
	if len(e.Fields) > 0 {
		return strings.Join(e.Fields, "; ")
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *ActionError) Unwrap() error {
	return e.Err
}

// SessionExpiredMessage is reported when the backend rejects the token.
const SessionExpiredMessage = "Session expired. Please login again."

// Catalog runs guarded catalog operations.
type Catalog struct {
	lib     Library
	session Session
}

// NewCatalog creates a Catalog.
func NewCatalog(lib Library, s Session) *Catalog {
	return &Catalog{lib: lib, session: s}
}

// token returns the bearer token if the session passes the guard.
func (c *Catalog) token(admin bool) (string, error) {
	snap := c.session.Snapshot()
	if !snap.Authenticated() {
		return "", domain.ErrNotAuthenticated
	}
	if admin && !c.session.CheckAdminAccess() {
		return "", domain.ErrAccessDenied.WithDetails(session.AccessDeniedMessage)
	}
	return snap.Token, nil
}

// fail maps a backend error to what the caller reports.
// fallback is used for any failure without a better message; invalid, when
// set, replaces it for 422 responses without a server message.
func (c *Catalog) fail(ctx context.Context, err error, fallback, invalid string) error {
	switch domain.StatusCode(err) {
	case http.StatusUnauthorized:
		c.session.Invalidate(ctx)
		return domain.ErrNotAuthenticated.WithDetails(SessionExpiredMessage).Wrap(err)
	case http.StatusForbidden:
		return domain.ErrAccessDenied.WithDetails(session.AccessDeniedMessage).Wrap(err)
	case http.StatusUnprocessableEntity:
		apiErr, _ := domain.AsAPIError(err)
		if invalid == "" {
			invalid = fallback
		}
		return &ActionError{
			Message: domain.MessageOr(err, invalid),
			Fields:  apiErr.FieldMessages(),
			Err:     err,
		}
	default:
		return &ActionError{Message: domain.MessageOr(err, fallback), Err: err}
	}
}

// ============================================================================
// Books
// ============================================================================

// Books lists the catalog, filtered client-side.
func (c *Catalog) Books(ctx context.Context, f BookFilter) ([]domain.Book, error) {
	token, err := c.token(false)
	if err != nil {
		return nil, err
	}
	books, err := c.lib.Books(ctx, token)
	if err != nil {
		return nil, c.fail(ctx, err, "Failed to fetch books", "")
	}
	return FilterBooks(books, f), nil
}

// AvailableBooks lists books that can be borrowed.
func (c *Catalog) AvailableBooks(ctx context.Context, query string) ([]domain.Book, error) {
	token, err := c.token(false)
	if err != nil {
		return nil, err
	}
	books, err := c.lib.AvailableBooks(ctx, token)
	if err != nil {
		return nil, c.fail(ctx, err, "Failed to fetch available books", "")
	}
	return FilterBooks(books, BookFilter{Query: query}), nil
}

// Borrowed lists the signed-in user's borrowed books.
func (c *Catalog) Borrowed(ctx context.Context) ([]domain.Book, error) {
	token, err := c.token(false)
	if err != nil {
		return nil, err
	}
	books, err := c.lib.BorrowedBooks(ctx, token)
	if err != nil {
		return nil, c.fail(ctx, err, "Failed to fetch borrowed books", "")
	}
	return books, nil
}

// Borrow borrows a book and returns the server's confirmation.
func (c *Catalog) Borrow(ctx context.Context, id int64, req domain.BorrowRequest) (string, error) {
	token, err := c.token(false)
	if err != nil {
		return "", err
	}
	res, err := c.lib.Borrow(ctx, token, id, req)
	if err != nil {
		return "", c.fail(ctx, err, "Failed to borrow book", "Cannot borrow this book")
	}
	if !res.Success {
		return "", &ActionError{Message: messageOr(res.Message, "Cannot borrow this book")}
	}
	return messageOr(res.Message, "Book borrowed successfully!"), nil
}

// Return returns a borrowed book.
func (c *Catalog) Return(ctx context.Context, id int64) (string, error) {
	token, err := c.token(false)
	if err != nil {
		return "", err
	}
	res, err := c.lib.Return(ctx, token, id)
	if err != nil {
		return "", c.fail(ctx, err, "Failed to return book", "Cannot return this book")
	}
	if !res.Success {
		return "", &ActionError{Message: messageOr(res.Message, "Cannot return this book")}
	}
	return "Book returned successfully!", nil
}

// UserDashboard summarises the catalog from the signed-in user's view.
type UserDashboard struct {
	TotalBooks   int `json:"total_books"`
	BorrowedByMe int `json:"borrowed_by_me"`
	Available    int `json:"available"`
}

// Dashboard builds the user dashboard counts.
func (c *Catalog) Dashboard(ctx context.Context) (*UserDashboard, error) {
	token, err := c.token(false)
	if err != nil {
		return nil, err
	}
	all, err := c.lib.Books(ctx, token)
	if err != nil {
		return nil, c.fail(ctx, err, "Failed to load dashboard data", "")
	}
	mine, err := c.lib.BorrowedBooks(ctx, token)
	if err != nil {
		return nil, c.fail(ctx, err, "Failed to load dashboard data", "")
	}
	return &UserDashboard{
		TotalBooks:   len(all),
		BorrowedByMe: len(mine),
		Available:    Summarize(all).Available,
	}, nil
}

// ============================================================================
// Own account
// ============================================================================

// UpdateProfile changes the signed-in user's name or email and refreshes
// the session identity.
func (c *Catalog) UpdateProfile(ctx context.Context, in domain.ProfileUpdate) (string, error) {
	token, err := c.token(false)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.Email) == "" {
		return "", domain.ErrValidation.WithDetails("Nothing to update")
	}
	if err := c.lib.UpdateProfile(ctx, token, in); err != nil {
		return "", c.fail(ctx, err, "Failed to update profile. Please try again.", "Failed to update profile")
	}
	if err := c.session.Revalidate(ctx); err != nil && !errors.Is(err, domain.ErrProfileInFlight) {
		return "", err
	}
	return "Profile updated successfully!", nil
}

// ChangePassword changes the signed-in user's password.
func (c *Catalog) ChangePassword(ctx context.Context, in domain.PasswordChange) (string, error) {
	token, err := c.token(false)
	if err != nil {
		return "", err
	}
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return "", domain.ErrValidation.WithDetails("Current and new password are required")
	}
	if in.NewPassword != in.NewPasswordConfirmation {
		return "", domain.ErrValidation.WithDetails("Passwords do not match")
	}
	if err := c.lib.ChangePassword(ctx, token, in); err != nil {
		return "", c.fail(ctx, err, "Failed to change password. Please try again.", "Failed to change password")
	}
	return "Password changed successfully!", nil
}

// ============================================================================
// Admin
// ============================================================================

// CreateBook adds a book.
func (c *Catalog) CreateBook(ctx context.Context, in domain.BookInput) (string, error) {
	token, err := c.token(true)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Author) == "" {
		return "", domain.ErrValidation.WithDetails("Title and author are required")
	}
	if err := c.lib.CreateBook(ctx, token, in); err != nil {
		return "", c.fail(ctx, err, "Failed to save book", "")
	}
	return "Book added successfully", nil
}

// UpdateBook edits a book.
func (c *Catalog) UpdateBook(ctx context.Context, id int64, in domain.BookInput) (string, error) {
	token, err := c.token(true)
	if err != nil {
		return "", err
	}
	if err := c.lib.UpdateBook(ctx, token, id, in); err != nil {
		return "", c.fail(ctx, err, "Failed to save book", "")
	}
	return "Book updated successfully", nil
}

// DeleteBook removes a book.
func (c *Catalog) DeleteBook(ctx context.Context, id int64) (string, error) {
	token, err := c.token(true)
	if err != nil {
		return "", err
	}
	if err := c.lib.DeleteBook(ctx, token, id); err != nil {
		return "", c.fail(ctx, err, "Failed to delete book", "")
	}
	return "Book deleted successfully", nil
}

// Users fetches one page of users, filtered client-side by query.
func (c *Catalog) Users(ctx context.Context, page int, query string) (*domain.UserPage, error) {
	token, err := c.token(true)
	if err != nil {
		return nil, err
	}
	p, err := c.lib.Users(ctx, token, page)
	if err != nil {
		return nil, c.fail(ctx, err, "Failed to fetch users", "")
	}
	p.Users = FilterUsers(p.Users, query)
	return p, nil
}

// CreateUser adds an account.
func (c *Catalog) CreateUser(ctx context.Context, in domain.UserInput) (string, error) {
	token, err := c.token(true)
	if err != nil {
		return "", err
	}
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if in.Status == "" {
		in.Status = domain.AccountActive
	}
	if !in.Role.Valid() {
		return "", domain.ErrValidation.WithDetails("Unknown role " + string(in.Role))
	}
	if err := c.lib.CreateUser(ctx, token, in); err != nil {
		return "", c.fail(ctx, err, "Failed to save user", "")
	}
	return "User created successfully", nil
}

// UpdateUser edits an account.
func (c *Catalog) UpdateUser(ctx context.Context, id int64, in domain.UserInput) (string, error) {
	token, err := c.token(true)
	if err != nil {
		return "", err
	}
	if in.Role != "" && !in.Role.Valid() {
		return "", domain.ErrValidation.WithDetails("Unknown role " + string(in.Role))
	}
	if err := c.lib.UpdateUser(ctx, token, id, in); err != nil {
		return "", c.fail(ctx, err, "Failed to save user", "")
	}
	return "User updated successfully", nil
}

// DeleteUser removes an account.
func (c *Catalog) DeleteUser(ctx context.Context, id int64) (string, error) {
	token, err := c.token(true)
	if err != nil {
		return "", err
	}
	if err := c.lib.DeleteUser(ctx, token, id); err != nil {
		return "", c.fail(ctx, err, "Failed to delete user", "")
	}
	return "User deleted successfully", nil
}

// ToggleUserStatus flips an account between active and inactive.
func (c *Catalog) ToggleUserStatus(ctx context.Context, id int64, current domain.AccountStatus) (domain.AccountStatus, string, error) {
	token, err := c.token(true)
	if err != nil {
		return "", "", err
	}
	next := current.Toggle()
	if err := c.lib.SetUserStatus(ctx, token, id, next); err != nil {
		return "", "", c.fail(ctx, err, "Failed to update user status", "")
	}
	verb := "deactivated"
	if next == domain.AccountActive {
		verb = "activated"
	}
	return next, "User " + verb + " successfully", nil
}

// Stats fetches the admin dashboard counts.
func (c *Catalog) Stats(ctx context.Context) (*domain.Stats, error) {
	token, err := c.token(true)
	if err != nil {
		return nil, err
	}
	stats, err := c.lib.Stats(ctx, token)
	if err != nil {
		return nil, c.fail(ctx, err, "Failed to load dashboard stats", "")
	}
	return stats, nil
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) != "" {
		return msg
	}
	return fallback
}
