package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/libcat-go/internal/core/domain"
	"github.com/yndnr/libcat-go/internal/core/service"
)

// BooksCommand returns the books subcommand group.
func BooksCommand() *cli.Command {
	return &cli.Command{
		Name:    "books",
		Aliases: []string{"book"},
		Usage:   "Browse and borrow books",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the catalog",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Filter by title, author or ISBN",
					},
					&cli.StringFlag{
						Name:  "status",
						Value: string(service.StatusAll),
						Usage: "Filter by status: all, available, borrowed",
					},
				},
				Action: on(booksScreen, booksList),
			},
			{
				Name:  "available",
				Usage: "List books that can be borrowed",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Filter by title, author or ISBN",
					},
				},
				Action: on(booksScreen, booksAvailable),
			},
			{
				Name:      "borrow",
				Usage:     "Borrow a book",
				ArgsUsage: "BOOK_ID",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "copies",
						Usage: "Number of copies",
					},
					&cli.StringFlag{
						Name:  "return-date",
						Usage: "Planned return date (YYYY-MM-DD)",
					},
				},
				Action: on(booksScreen, booksBorrow),
			},
			{
				Name:      "return",
				Usage:     "Return a borrowed book",
				ArgsUsage: "BOOK_ID",
				Action:    on(booksScreen, booksReturn),
			},
		},
	}
}

// BorrowedCommand returns the borrowed command.
func BorrowedCommand() *cli.Command {
	return &cli.Command{
		Name:   "borrowed",
		Usage:  "List books you have borrowed",
		Action: on(borrowedScreen, booksBorrowed),
	}
}

// DashboardCommand returns the dashboard command.
func DashboardCommand() *cli.Command {
	return &cli.Command{
		Name:   "dashboard",
		Usage:  "Show the summary for your role",
		Action: on(homeScreen, dashboard),
	}
}

func booksList(c *cli.Context, env *Env) error {
	status, err := service.ParseStatusFilter(c.String("status"))
	if err != nil {
		return env.fail(err)
	}

	var books []domain.Book
	err = env.spin("Loading books", func() error {
		var err error
		books, err = env.Catalog.Books(c.Context, service.BookFilter{
			Query:  c.String("search"),
			Status: status,
		})
		return err
	})
	if err != nil {
		return env.fail(err)
	}
	return printBooks(env, books)
}

func booksAvailable(c *cli.Context, env *Env) error {
	var books []domain.Book
	err := env.spin("Loading books", func() error {
		var err error
		books, err = env.Catalog.AvailableBooks(c.Context, c.String("search"))
		return err
	})
	if err != nil {
		return env.fail(err)
	}
	return printBooks(env, books)
}

func booksBorrowed(c *cli.Context, env *Env) error {
	var books []domain.Book
	err := env.spin("Loading borrowed books", func() error {
		var err error
		books, err = env.Catalog.Borrowed(c.Context)
		return err
	})
	if err != nil {
		return env.fail(err)
	}
	return printBooks(env, books)
}

func booksBorrow(c *cli.Context, env *Env) error {
	id, err := argID(c, "book")
	if err != nil {
		return env.fail(err)
	}
	msg, err := env.Catalog.Borrow(c.Context, id, domain.BorrowRequest{
		Copies:     c.Int("copies"),
		ReturnDate: c.String("return-date"),
	})
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

func booksReturn(c *cli.Context, env *Env) error {
	id, err := argID(c, "book")
	if err != nil {
		return env.fail(err)
	}
	msg, err := env.Catalog.Return(c.Context, id)
	if err != nil {
		return env.fail(err)
	}
	env.succeed(msg)
	return nil
}

func dashboard(c *cli.Context, env *Env) error {
	if env.Session.CheckAdminAccess() {
		return adminStats(c, env)
	}

	var d *service.UserDashboard
	err := env.spin("Loading dashboard", func() error {
		var err error
		d, err = env.Catalog.Dashboard(c.Context)
		return err
	})
	if err != nil {
		return env.fail(err)
	}
	return env.Printer.Print(d)
}

// printBooks prints books, or a hint when there are none.
func printBooks(env *Env, books []domain.Book) error {
	if len(books) == 0 && !env.Printer.Machine() {
		fmt.Fprintln(env.Out(), "No books found.")
		return nil
	}
	return env.Printer.Print(books)
}

// argID parses the first positional argument as a numeric ID.
func argID(c *cli.Context, what string) (int64, error) {
	raw := strings.TrimSpace(c.Args().First())
	if raw == "" {
		return 0, domain.ErrValidation.WithDetails(fmt.Sprintf("A %s ID is required", what))
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrValidation.WithDetails(fmt.Sprintf("Invalid %s ID %q", what, raw))
	}
	return id, nil
}
