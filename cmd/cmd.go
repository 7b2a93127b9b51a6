// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/folio/internal/media"
	"github.com/urfave/cli/v3"
)

// setupCommand creates the config file and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the local database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your account and login session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the session locally",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "account",
						Aliases:  []string{"a"},
						Usage:    "Email or username",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password (read from stdin when omitted)",
						Sources: cli.EnvVars("FOLIO_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "register",
				Usage: "Create a reader account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "username", Usage: "Username", Required: true},
					&cli.StringFlag{Name: "password", Usage: "Password (at least 6 characters)", Required: true},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "whoami",
				Usage:  "Show the logged-in user",
				Action: r.protect(r.AuthWhoami),
			},
			{
				Name:  "pen-name",
				Usage: "Set the name shown on books you publish",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Action: r.protect(r.AuthPenName),
			},
		},
	}
}

func listingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "genre",
			Aliases: []string{"g"},
			Usage:   "Only show this genre (repeatable); defaults to the saved selection",
		},
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Filter titles by search term",
		},
		&cli.IntFlag{
			Name:  "page",
			Usage: "Page to show for every genre",
			Value: 1,
		},
		&cli.BoolFlag{
			Name:  "remember",
			Usage: "Save --genre and --search as the defaults for later listings",
		},
		formatFlag(),
	}
}

// booksCommand handles browsing and book management
func booksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "books",
		Usage: "Browse, follow and manage books",
		Commands: []*cli.Command{
			{
				Name:   "browse",
				Usage:  "List books by genre",
				Flags:  listingFlags(),
				Action: r.BooksBrowse,
			},
			{
				Name:   "bookmarks",
				Usage:  "List books you follow, by genre",
				Flags:  listingFlags(),
				Action: r.protect(r.BooksBookmarks),
			},
			{
				Name:      "show",
				Usage:     "Show book detail and episodes",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{formatFlag()},
				Action:    r.BooksShow,
			},
			{
				Name:   "create",
				Usage:  "Publish a new book",
				Flags:  bookFormFlags(true),
				Action: r.protect(r.BooksCreate),
			},
			{
				Name:      "update",
				Usage:     "Edit a book you published",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     bookFormFlags(false),
				Action:    r.protect(r.BooksUpdate),
			},
			{
				Name:      "complete",
				Usage:     "Mark a book as complete",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "undo", Usage: "Mark the book as ongoing again"},
				},
				Action: r.protect(r.BooksComplete),
			},
			{
				Name:      "follow",
				Usage:     "Follow or unfollow a book",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.protect(r.BooksFollow),
			},
			{
				Name:  "rate",
				Usage: "Rate a book from 1 to 5",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.IntArg{Name: "rating"},
				},
				Action: r.protect(r.BooksRate),
			},
			{
				Name:      "cover",
				Usage:     "Download a book's cover as a resized JPEG",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default: {id}-{title}.jpg)"},
					&cli.IntFlag{Name: "width", Usage: "Width in pixels; 0 keeps the original size", Value: media.DefaultCoverWidth},
				},
				Action: r.BooksCover,
			},
			{
				Name:      "export",
				Usage:     "Export every episode you can read to Markdown files",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Output directory (default: {id}-{title})"},
					&cli.BoolFlag{Name: "no-cover", Usage: "Skip the cover image"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent episode downloads", Value: 4},
				},
				Action: r.protect(r.BooksExport),
			},
		},
	}
}

func bookFormFlags(create bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "Book title", Required: create},
		&cli.StringFlag{Name: "description", Usage: "Synopsis (HTML or plain text)"},
		&cli.StringSliceFlag{Name: "genre", Aliases: []string{"g"}, Usage: "Genre value (repeatable)", Required: create},
		&cli.StringFlag{Name: "release-date", Usage: "Release date as YYYY-MM-DD"},
		&cli.StringFlag{Name: "status", Usage: "draft or published", Value: "draft"},
		&cli.IntFlag{Name: "price", Usage: "Default price per chapter in coins"},
		&cli.StringFlag{Name: "cover", Usage: "JPEG or PNG cover image"},
	}
}

func episodeFormFlags(create bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "Episode title", Required: create},
		&cli.StringFlag{Name: "content", Usage: "Episode body (HTML or plain text)"},
		&cli.StringFlag{Name: "content-file", Usage: "Read the episode body from a file"},
		&cli.BoolFlag{Name: "free", Usage: "Make the episode free to read"},
		&cli.IntFlag{Name: "price", Usage: "Price in coins"},
		&cli.StringFlag{Name: "release-date", Usage: "Release date as YYYY-MM-DD"},
		&cli.StringFlag{Name: "status", Usage: "draft or published", Value: "draft"},
		&cli.StringFlag{Name: "priority", Usage: "Ordering hint within the book"},
		&cli.StringFlag{Name: "cover", Usage: "JPEG or PNG cover image"},
		&cli.StringFlag{Name: "audio", Usage: "MP3 narration"},
		&cli.StringFlag{Name: "file", Usage: "PDF version of the episode"},
	}
}

// episodesCommand handles reading, unlocking and publishing episodes
func episodesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "episodes",
		Aliases: []string{"ep"},
		Usage:   "Read, unlock and publish episodes",
		Commands: []*cli.Command{
			{
				Name:  "read",
				Usage: "Print an episode you can read",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "book"},
					&cli.StringArg{Name: "episode"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "pdf", Usage: "Extract the text from the episode's PDF"},
					&cli.StringFlag{Name: "open", Usage: "Open the episode's media in the browser: audio or file"},
				},
				Action: r.protect(r.EpisodesRead),
			},
			{
				Name:  "unlock",
				Usage: "Buy a locked episode with coins",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "book"},
					&cli.StringArg{Name: "episode"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the purchase without asking"},
				},
				Action: r.protect(r.EpisodesUnlock),
			},
			{
				Name:      "create",
				Usage:     "Publish a new episode",
				Arguments: []cli.Argument{&cli.StringArg{Name: "book"}},
				Flags:     episodeFormFlags(true),
				Action:    r.protect(r.EpisodesCreate),
			},
			{
				Name:  "update",
				Usage: "Edit an episode you published",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "book"},
					&cli.StringArg{Name: "episode"},
				},
				Flags:  episodeFormFlags(false),
				Action: r.protect(r.EpisodesUpdate),
			},
		},
	}
}

// coinsCommand handles the coin balance
func coinsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "coins",
		Usage: "Check your balance, ledger and daily check-in",
		Commands: []*cli.Command{
			{
				Name:   "balance",
				Usage:  "Show your coin balance",
				Action: r.protect(r.CoinsBalance),
			},
			{
				Name:   "ledger",
				Usage:  "List coin transactions",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.protect(r.CoinsLedger),
			},
			{
				Name:   "checkin",
				Usage:  "Collect today's check-in reward",
				Action: r.protect(r.CoinsCheckin),
			},
			{
				Name:      "earn",
				Usage:     "Credit earned coins",
				Arguments: []cli.Argument{&cli.IntArg{Name: "amount"}},
				Action:    r.protect(r.CoinsEarn),
			},
		},
	}
}

// historyCommand lists recently read episodes
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "history",
		Usage:  "Show your reading history",
		Flags:  []cli.Flag{formatFlag()},
		Action: r.protect(r.History),
	}
}

// notificationsCommand handles new-episode notifications
func notificationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notif"},
		Usage:   "New episodes from books you follow",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List notifications",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.protect(r.NotificationsList),
			},
			{
				Name:      "read",
				Usage:     "Mark an episode's notification as read",
				Arguments: []cli.Argument{&cli.StringArg{Name: "episode"}},
				Action:    r.protect(r.NotificationsRead),
			},
		},
	}
}

// apiCommand handles direct API calls and the account dump
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls for debugging",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "dump",
				Usage: "Snapshot of your profile, coins, history, notifications and bookmarks",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "save",
						Usage: "Also write the dump to this file",
					},
				},
				Action: r.protect(r.APIDump),
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive reader",
		Action:  r.TUI,
	}
}
