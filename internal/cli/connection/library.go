package connection

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/yndnr/libcat-go/internal/core/domain"
)

// LibraryClient is the typed catalog API.
type LibraryClient struct {
	http *HTTPClient
}

// NewLibraryClient wraps an HTTPClient.
func NewLibraryClient(c *HTTPClient) *LibraryClient {
	return &LibraryClient{http: c}
}

// HTTP returns the underlying transport.
func (c *LibraryClient) HTTP() *HTTPClient {
	return c.http
}

func (c *LibraryClient) call(ctx context.Context, method, path, token string, body, target any) error {
	resp, err := c.http.Do(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	return ParseResponse(resp, target)
}

// ============================================================================
// Authentication
// ============================================================================

// Login calls POST /login.
func (c *LibraryClient) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register calls POST /register.
func (c *LibraryClient) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResponse, error) {
	var out domain.AuthResponse
	if err := c.call(ctx, http.MethodPost, "/register", "", reg.Normalize(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile calls GET /profile with the given token.
func (c *LibraryClient) Profile(ctx context.Context, token string) (*domain.ProfileEnvelope, error) {
	var out domain.ProfileEnvelope
	if err := c.call(ctx, http.MethodGet, "/profile", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================================
// Books
// ============================================================================

// bookList accepts a bare array, {"data": [...]} or {"books": [...]}.
type bookList []domain.Book

func (l *bookList) UnmarshalJSON(data []byte) error {
	var arr []domain.Book
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}

	var env struct {
		Data  []domain.Book `json:"data"`
		Books []domain.Book `json:"books"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	switch {
	case env.Data != nil:
		*l = env.Data
	case env.Books != nil:
		*l = env.Books
	default:
		*l = []domain.Book{}
	}
	return nil
}

// Books calls GET /books.
func (c *LibraryClient) Books(ctx context.Context, token string) ([]domain.Book, error) {
	var out bookList
	if err := c.call(ctx, http.MethodGet, "/books", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AvailableBooks calls GET /available-books.
func (c *LibraryClient) AvailableBooks(ctx context.Context, token string) ([]domain.Book, error) {
	var out bookList
	if err := c.call(ctx, http.MethodGet, "/available-books", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BorrowedBooks calls GET /user/borrowed.
func (c *LibraryClient) BorrowedBooks(ctx context.Context, token string) ([]domain.Book, error) {
	var out bookList
	if err := c.call(ctx, http.MethodGet, "/user/borrowed", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBook calls POST /books.
func (c *LibraryClient) CreateBook(ctx context.Context, token string, in domain.BookInput) error {
	return c.call(ctx, http.MethodPost, "/books", token, in, nil)
}

// UpdateBook calls PUT /books/{id}.
func (c *LibraryClient) UpdateBook(ctx context.Context, token string, id int64, in domain.BookInput) error {
	return c.call(ctx, http.MethodPut, "/books/"+pathEscapeID(id), token, in, nil)
}

// DeleteBook calls DELETE /books/{id}.
func (c *LibraryClient) DeleteBook(ctx context.Context, token string, id int64) error {
	return c.call(ctx, http.MethodDelete, "/books/"+pathEscapeID(id), token, nil, nil)
}

// Borrow calls POST /books/{id}/borrow.
func (c *LibraryClient) Borrow(ctx context.Context, token string, id int64, req domain.BorrowRequest) (*domain.ActionResult, error) {
	var out domain.ActionResult
	if err := c.call(ctx, http.MethodPost, "/books/"+pathEscapeID(id)+"/borrow", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Return calls POST /books/{id}/return.
func (c *LibraryClient) Return(ctx context.Context, token string, id int64) (*domain.ActionResult, error) {
	var out domain.ActionResult
	if err := c.call(ctx, http.MethodPost, "/books/"+pathEscapeID(id)+"/return", token, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ============================================================================
// Own account
// ============================================================================

// UpdateProfile calls PUT /user/profile.
func (c *LibraryClient) UpdateProfile(ctx context.Context, token string, in domain.ProfileUpdate) error {
	return c.call(ctx, http.MethodPut, "/user/profile", token, in, nil)
}

// ChangePassword calls PUT /user/change-password.
func (c *LibraryClient) ChangePassword(ctx context.Context, token string, in domain.PasswordChange) error {
	return c.call(ctx, http.MethodPut, "/user/change-password", token, in, nil)
}

// ============================================================================
// Users (admin)
// ============================================================================

// Users calls GET /users?page=N.
func (c *LibraryClient) Users(ctx context.Context, token string, page int) (*domain.UserPage, error) {
	if page < 1 {
		page = 1
	}
	var out struct {
		Status  domain.Status    `json:"status"`
		Message string           `json:"message"`
		Data    *domain.UserPage `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/users?page="+strconv.Itoa(page), token, nil, &out); err != nil {
		return nil, err
	}
	if !out.Status.Success() || out.Data == nil {
		return nil, domain.ErrUnexpectedResponse.WithDetails("users: invalid response format")
	}
	return out.Data, nil
}

// CreateUser calls POST /users.
func (c *LibraryClient) CreateUser(ctx context.Context, token string, in domain.UserInput) error {
	return c.call(ctx, http.MethodPost, "/users", token, in, nil)
}

// UpdateUser calls PUT /users/{id}.
func (c *LibraryClient) UpdateUser(ctx context.Context, token string, id int64, in domain.UserInput) error {
	return c.call(ctx, http.MethodPut, "/users/"+pathEscapeID(id), token, in, nil)
}

// DeleteUser calls DELETE /users/{id}.
func (c *LibraryClient) DeleteUser(ctx context.Context, token string, id int64) error {
	return c.call(ctx, http.MethodDelete, "/users/"+pathEscapeID(id), token, nil, nil)
}

// SetUserStatus calls PUT /users/{id}/status.
func (c *LibraryClient) SetUserStatus(ctx context.Context, token string, id int64, status domain.AccountStatus) error {
	body := struct {
		Status domain.AccountStatus `json:"status"`
	}{status}
	return c.call(ctx, http.MethodPut, "/users/"+pathEscapeID(id)+"/status", token, body, nil)
}

// Stats calls GET /dashboard/stats.
func (c *LibraryClient) Stats(ctx context.Context, token string) (*domain.Stats, error) {
	var out struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Data    *domain.Stats `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/dashboard/stats", token, nil, &out); err != nil {
		return nil, err
	}
	if !out.Success || out.Data == nil {
		msg := out.Message
		if msg == "" {
			msg = "Invalid response format from server"
		}
		return nil, domain.ErrUnexpectedResponse.WithDetails(msg)
	}
	return out.Data, nil
}
