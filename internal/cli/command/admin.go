package command

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/core/service"
)

// AdminCommand returns the admin subcommand group.
func AdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Catalog administration (admin role)",
		Subcommands: []*cli.Command{
			adminBooksCommand(),
			adminUsersCommand(),
			{
				Name:   "stats",
				Usage:  "Show catalog statistics",
				Action: on(adminStatsScreen, adminStats),
			},
		},
	}
}

func bookFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "Title"},
		&cli.StringFlag{Name: "author", Usage: "Author"},
		&cli.StringFlag{Name: "isbn", Usage: "ISBN"},
		&cli.StringFlag{Name: "publisher", Usage: "Publisher"},
		&cli.StringFlag{Name: "status", Usage: "Status: available, borrowed"},
	}
}

func userFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Full name"},
		&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email"},
		&cli.StringFlag{Name: "password", Usage: "Password"},
		&cli.StringFlag{Name: "role", Usage: "Role: user, admin"},
		&cli.StringFlag{Name: "status", Usage: "Status: active, inactive"},
	}
}

func forceFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "force",
		Aliases: []string{"f"},
		Usage:   "Skip confirmation",
	}
}

func adminBooksCommand() *cli.Command {
	return &cli.Command{
		Name:  "books",
		Usage: "Manage the catalog",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the catalog",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by title, author or ISBN"},
					&cli.StringFlag{Name: "status", Value: string(service.StatusAll), Usage: "Filter by status: all, available, borrowed"},
				},
				Action: on(adminBooksScreen, booksList),
			},
			{
				Name:   "create",
				Usage:  "Add a book",
				Flags:  bookFlags(),
				Action: on(adminBooksScreen, adminBookCreate),
			},
			{
				Name:      "update",
				Usage:     "Edit a book",
				ArgsUsage: "BOOK_ID",
				Flags:     bookFlags(),
				Action:    on(adminBooksScreen, adminBookUpdate),
			},
			{
				Name:      "delete",
				Usage:     "Delete a book",
				ArgsUsage: "BOOK_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action:    on(adminBooksScreen, adminBookDelete),
			},
		},
	}
}

func adminUsersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage accounts",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List accounts",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by name or email"},
				},
				Action: on(adminUsersScreen, adminUserList),
			},
			{
				Name:   "create",
				Usage:  "Create an account",
				Flags:  userFlags(),
				Action: on(adminUsersScreen, adminUserCreate),
			},
			{
				Name:      "update",
				Usage:     "Edit an account",
				ArgsUsage: "USER_ID",
				Flags:     userFlags(),
				Action:    on(adminUsersScreen, adminUserUpdate),
			},
			{
				Name:      "delete",
				Usage:     "Delete an account",
				ArgsUsage: "USER_ID",
				Flags:     []cli.Flag{forceFlag()},
				Action:    on(adminUsersScreen, adminUserDelete),
			},
			{
				Name:      "toggle-status",
				Usage:     "Activate or deactivate an account",
				ArgsUsage: "USER_ID",
				Action:    on(adminUsersScreen, adminUserToggle),
			},
		},
	}
}

// ============================================================================
// Books
// ============================================================================

func adminBookCreate(c *cli.Context, env *Env) error {
	msg, err := env.Catalog.CreateBook(c.Context, bookInput(c, domain.BookInput{}))
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

func adminBookUpdate(c *cli.Context, env *Env) error {
	id, err := argID(c, "book")
	if err != nil {
		return env.fail(err)
	}
	book, err := findBook(c.Context, env, id)
	if err != nil {
		return env.fail(err)
	}

	msg, err := env.Catalog.UpdateBook(c.Context, id, bookInput(c, domain.BookInput{
		Title:     book.Title,
		Author:    book.Author,
		ISBN:      book.ISBN,
		Publisher: book.Publisher,
		Status:    book.Status,
	}))
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

func adminBookDelete(c *cli.Context, env *Env) error {
	id, err := argID(c, "book")
	if err != nil {
		return env.fail(err)
	}
	if !c.Bool("force") && !env.confirm(fmt.Sprintf("Delete book %d?", id)) {
		return nil
	}
	msg, err := env.Catalog.DeleteBook(c.Context, id)
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

// bookInput overlays the flags that were set on base.
func bookInput(c *cli.Context, base domain.BookInput) domain.BookInput {
	if c.IsSet("title") {
		base.Title = strings.TrimSpace(c.String("title"))
	}
	if c.IsSet("author") {
		base.Author = strings.TrimSpace(c.String("author"))
	}
	if c.IsSet("isbn") {
		base.ISBN = strings.TrimSpace(c.String("isbn"))
	}
	if c.IsSet("publisher") {
		base.Publisher = strings.TrimSpace(c.String("publisher"))
	}
	if c.IsSet("status") {
		base.Status = domain.BookStatus(strings.ToLower(c.String("status")))
	}
	return base
}

func findBook(ctx context.Context, env *Env, id int64) (*domain.Book, error) {
	books, err := env.Catalog.Books(ctx, service.BookFilter{})
	if err != nil {
		return nil, err
	}
	for i := range books {
		if books[i].ID == id {
			return &books[i], nil
		}
	}
	return nil, domain.ErrValidation.WithDetails(fmt.Sprintf("Book %d not found", id))
}

// ============================================================================
// Users
// ============================================================================

func adminUserList(c *cli.Context, env *Env) error {
	var page *domain.UserPage
	err := env.spin("Loading users", func() error {
		var err error
		page, err = env.Catalog.Users(c.Context, c.Int("page"), c.String("search"))
		return err
	})
	if err != nil {
		return env.fail(err)
	}

	if env.Printer.Machine() {
		return env.Printer.Print(page)
	}
	if len(page.Users) == 0 {
		fmt.Fprintln(env.Out(), "No users found.")
		return nil
	}
	if err := env.Printer.Print(page.Users); err != nil {
		return err
	}
	fmt.Fprintf(env.Out(), "\nPage %d of %d (%d users)\n", page.CurrentPage, page.LastPage, page.Total)
	return nil
}

func adminUserCreate(c *cli.Context, env *Env) error {
	msg, err := env.Catalog.CreateUser(c.Context, userInput(c, domain.UserInput{}))
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

func adminUserUpdate(c *cli.Context, env *Env) error {
	id, err := argID(c, "user")
	if err != nil {
		return env.fail(err)
	}
	user, err := findUser(c.Context, env, id)
	if err != nil {
		return env.fail(err)
	}

	msg, err := env.Catalog.UpdateUser(c.Context, id, userInput(c, domain.UserInput{
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Status: user.Status,
	}))
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

func adminUserDelete(c *cli.Context, env *Env) error {
	id, err := argID(c, "user")
	if err != nil {
		return env.fail(err)
	}
	if !c.Bool("force") && !env.confirm(fmt.Sprintf("Delete user %d?", id)) {
		return nil
	}
	msg, err := env.Catalog.DeleteUser(c.Context, id)
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

func adminUserToggle(c *cli.Context, env *Env) error {
	id, err := argID(c, "user")
	if err != nil {
		return env.fail(err)
	}
	user, err := findUser(c.Context, env, id)
	if err != nil {
		return env.fail(err)
	}
	_, msg, err := env.Catalog.ToggleUserStatus(c.Context, id, user.Status)
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

// userInput overlays the flags that were set on base.
func userInput(c *cli.Context, base domain.UserInput) domain.UserInput {
	if c.IsSet("name") {
		base.Name = strings.TrimSpace(c.String("name"))
	}
	if c.IsSet("email") {
		base.Email = strings.TrimSpace(c.String("email"))
	}
	if c.IsSet("password") {
		base.Password = c.String("password")
	}
	if c.IsSet("role") {
		base.Role = domain.Role(strings.ToLower(c.String("role")))
	}
	if c.IsSet("status") {
		base.Status = domain.AccountStatus(strings.ToLower(c.String("status")))
	}
	return base
}

// findUser walks the user pages until id is found.
func findUser(ctx context.Context, env *Env, id int64) (*domain.User, error) {
	for page := 1; ; page++ {
		p, err := env.Catalog.Users(ctx, page, "")
		if err != nil {
			return nil, err
		}
		for i := range p.Users {
			if p.Users[i].ID == id {
				return &p.Users[i], nil
			}
		}
		if page >= p.LastPage {
			return nil, domain.ErrValidation.WithDetails(fmt.Sprintf("User %d not found", id))
		}
	}
}

// ============================================================================
// Stats
// ============================================================================

// statsView is the admin dashboard as printed.
type statsView struct {
	TotalBooks     int    `json:"total_books"`
	TotalUsers     int    `json:"total_users"`
	AvailableBooks int    `json:"available_books"`
	BorrowedBooks  int    `json:"borrowed_books"`
	Availability   string `json:"availability"`
}

func adminStats(c *cli.Context, env *Env) error {
	var stats *domain.Stats
	err := env.spin("Loading statistics", func() error {
		var err error
		stats, err = env.Catalog.Stats(c.Context)
		return err
	})
	if err != nil {
		return env.fail(err)
	}
	return env.Printer.Print(statsView{
		TotalBooks:     stats.TotalBooks,
		TotalUsers:     stats.TotalUsers,
		AvailableBooks: stats.AvailableBooks,
		BorrowedBooks:  stats.BorrowedBooks,
		Availability:   fmt.Sprintf("%.1f%%", stats.AvailabilityPercent()),
	})
}

// confirm asks a yes/no question on stdin. The console reads its own
// input, so there the question is answered with --force instead.
func (e *Env) confirm(question string) bool {
	if e.console {
		e.Printer.Failure("Re-run with --force to confirm")
		return false
	}
	fmt.Fprintf(e.ErrOut(), "%s [y/N]: ", question)
	line, _ := bufio.NewReader(e.In()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
