// package formatter renders book listings, coin ledgers and reading history as text, JSON, CSV
// or Markdown, and writes book exports to disk
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/folio/internal/media"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/dustin/go-humanize"
)

// Format is an output format name accepted by --format.
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "md"
)

// Formats lists every accepted format in help order.
var Formats = []Format{Text, JSON, CSV, Markdown}

// now is the reference time for relative timestamps.
var now = time.Now

// ParseFormat accepts a format name, defaulting to text. "markdown" is an alias of md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, json, csv or md)", shared.ErrInvalidArgument, s)
	}
}

func coins(c models.Coins) string {
	return humanize.Comma(int64(c))
}

func when(t models.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t.Time, now(), "ago", "from now")
}

func stamp(t models.Timestamp) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// BookSection is a titled list of books, one per genre in browse output.
type BookSection struct {
	Title string               `json:"genre"`
	Books []models.BookSummary `json:"books"`
	Page  int                  `json:"page"`
	More  bool                 `json:"has_next_page"`
}

// Books renders browse sections in f.
func Books(sections []BookSection, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(sections, true)
	case CSV:
		return BooksToCSV(sections)
	case Markdown:
		return BooksToMarkdown(sections)
	default:
		return BooksToText(sections)
	}
}

// BooksToCSV writes one row per book with columns: Genre, ID, Title, Rating, Cover
func BooksToCSV(sections []BookSection) ([]byte, error) {
	var rows [][]string
	for _, s := range sections {
		for _, b := range s.Books {
			rows = append(rows, []string{s.Title, b.ID.String(), b.Title, b.AvgRating.String(), b.CoverImage})
		}
	}
	return writeCSV([]string{"Genre", "ID", "Title", "Rating", "Cover"}, rows)
}

// BooksToMarkdown writes a heading per section and a numbered list of books.
func BooksToMarkdown(sections []BookSection) ([]byte, error) {
	var buf bytes.Buffer
	for i, s := range sections {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "## %s\n\n", s.Title)
		for j, b := range s.Books {
			fmt.Fprintf(&buf, "%d. **%s** (id %s, %s★)\n", j+1, b.Title, b.ID, b.AvgRating)
		}
		if s.More {
			fmt.Fprintf(&buf, "\n_Page %d, more available._\n", s.Page)
		}
	}
	return buf.Bytes(), nil
}

// BooksToText writes sections as indented plain text.
func BooksToText(sections []BookSection) ([]byte, error) {
	var buf bytes.Buffer
	if len(sections) == 0 {
		buf.WriteString("No books found.\n")
		return buf.Bytes(), nil
	}
	for i, s := range sections {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "%s (page %d)\n", s.Title, max(s.Page, 1))
		for _, b := range s.Books {
			fmt.Fprintf(&buf, "  [%s] %s  %s★\n", b.ID, b.Title, b.AvgRating)
		}
	}
	return buf.Bytes(), nil
}

// BookDetail renders one book with its episodes. Locked episodes are marked.
func BookDetail(d *models.BookDetail, f Format) ([]byte, error) {
	if f == JSON {
		return shared.MarshalJSON(d, true)
	}

	var buf bytes.Buffer
	if f == Markdown {
		fmt.Fprintf(&buf, "# %s\n\n", d.Title)
	} else {
		fmt.Fprintf(&buf, "%s\n", d.Title)
	}
	if d.PenName != "" {
		fmt.Fprintf(&buf, "by %s\n", d.PenName)
	}
	fmt.Fprintf(&buf, "Rating: %s★  Status: %s  Complete: %t\n", d.AvgRating, d.Status, bool(d.IsComplete))
	if cats := d.Categories(); len(cats) > 0 {
		fmt.Fprintf(&buf, "Genres: %s\n", strings.Join(cats, ", "))
	}
	if d.Description != "" {
		fmt.Fprintf(&buf, "\n%s\n", media.ToMarkdown(d.Description))
	}

	fmt.Fprintf(&buf, "\nEpisodes (%d)\n", len(d.Episodes))
	for i, ep := range d.Episodes {
		fmt.Fprintf(&buf, "%3d. [%s] %s  %s\n", i+1, ep.ID, ep.Title, episodePrice(ep))
	}
	return buf.Bytes(), nil
}

func episodePrice(ep models.Episode) string {
	switch {
	case ep.EffectivePrice() == 0:
		return "free"
	case ep.Locked:
		return fmt.Sprintf("locked, %s coins", coins(ep.EffectivePrice()))
	default:
		return fmt.Sprintf("unlocked, %s coins", coins(ep.EffectivePrice()))
	}
}

// Ledger renders a coin ledger in f.
func Ledger(l *models.CoinLedger, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(l, true)
	case CSV:
		return LedgerToCSV(l)
	case Markdown:
		return LedgerToMarkdown(l)
	default:
		return LedgerToText(l)
	}
}

func signed(tx models.Transaction) string {
	if tx.Type.Debit() {
		return "-" + coins(tx.Amount)
	}
	return "+" + coins(tx.Amount)
}

// LedgerToCSV writes one row per transaction with columns: ID, Type, Amount, Book, Episode, Description, Created
func LedgerToCSV(l *models.CoinLedger) ([]byte, error) {
	rows := make([][]string, 0, len(l.Transactions))
	for _, tx := range l.Transactions {
		amount := int64(tx.Amount)
		if tx.Type.Debit() {
			amount = -amount
		}
		rows = append(rows, []string{
			tx.ID.String(),
			string(tx.Type),
			fmt.Sprint(amount),
			tx.BookID.String(),
			tx.EpisodeID.String(),
			tx.Description,
			stamp(tx.CreatedAt),
		})
	}
	return writeCSV([]string{"ID", "Type", "Amount", "Book", "Episode", "Description", "Created"}, rows)
}

// LedgerToMarkdown writes the balance and a transaction table.
func LedgerToMarkdown(l *models.CoinLedger) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Coins\n\n**Balance**: %s\n\n", coins(l.TotalCoins))
	if len(l.Transactions) == 0 {
		buf.WriteString("_No transactions._\n")
		return buf.Bytes(), nil
	}
	buf.WriteString("| Type | Amount | Description | When |\n|---|---:|---|---|\n")
	for _, tx := range l.Transactions {
		fmt.Fprintf(&buf, "| %s | %s | %s | %s |\n", tx.Type, signed(tx), tx.Description, when(tx.CreatedAt))
	}
	return buf.Bytes(), nil
}

// LedgerToText writes the balance followed by one line per transaction.
func LedgerToText(l *models.CoinLedger) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Balance: %s coins\n", coins(l.TotalCoins))
	if len(l.Transactions) > 0 {
		buf.WriteString("\n")
	}
	for _, tx := range l.Transactions {
		desc := tx.Description
		if desc == "" {
			desc = string(tx.Type)
		}
		fmt.Fprintf(&buf, "%8s  %-14s %s (%s)\n", signed(tx), tx.Type, desc, when(tx.CreatedAt))
	}
	return buf.Bytes(), nil
}

// History renders reading history in f.
func History(entries []models.HistoryEntry, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(entries, true)
	case CSV:
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.BookID.String(), e.Title, e.EpisodeID.String(), e.EpisodeTitle, stamp(e.UpdatedAt)})
		}
		return writeCSV([]string{"Book", "Title", "Episode", "Episode Title", "Updated"}, rows)
	case Markdown:
		var buf bytes.Buffer
		buf.WriteString("# Reading history\n\n")
		for i, e := range entries {
			fmt.Fprintf(&buf, "%d. **%s**: %s (%s)\n", i+1, e.Title, e.EpisodeTitle, when(e.UpdatedAt))
		}
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		if len(entries) == 0 {
			buf.WriteString("No reading history.\n")
		}
		for _, e := range entries {
			fmt.Fprintf(&buf, "[%s/%s] %s: %s (%s)\n", e.BookID, e.EpisodeID, e.Title, e.EpisodeTitle, when(e.UpdatedAt))
		}
		return buf.Bytes(), nil
	}
}

// Notifications renders notifications as plain text, unread first marked with *.
func Notifications(ns []models.Notification, f Format) ([]byte, error) {
	if f == JSON {
		return shared.MarshalJSON(ns, true)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d unread\n", models.UnreadCount(ns))
	for _, n := range ns {
		mark := " "
		if n.Unread() {
			mark = "*"
		}
		fmt.Fprintf(&buf, "%s [%s] %s (%s)\n", mark, n.EpisodeID, n.Message, when(n.CreatedAt))
	}
	return buf.Bytes(), nil
}

// Write copies a renderer's output to w, returning the renderer's error first.
func Write(w io.Writer, data []byte, err error) error {
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EpisodeFileName is the export file name for the i-th (zero-based) episode.
func EpisodeFileName(i int, ep models.Episode) string {
	slug := media.Slug(ep.Title)
	if slug == "" {
		slug = "episode-" + ep.ID.String()
	}
	return fmt.Sprintf("%03d-%s.md", i+1, slug)
}

// MarkdownExportResult contains information about files created by WriteBookExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	Skipped    []models.ID
}

// BookIndex renders the README of a book export. Episodes missing from files are listed without links.
func BookIndex(d *models.BookDetail, files map[models.ID]string, coverFile string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", d.Title)
	if coverFile != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", coverFile)
	}
	if d.PenName != "" {
		fmt.Fprintf(&buf, "**Author**: %s\n", d.PenName)
	}
	fmt.Fprintf(&buf, "**Episodes**: %d\n\n", len(d.Episodes))
	if d.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", media.ToMarkdown(d.Description))
	}

	buf.WriteString("## Episodes\n\n")
	for i, ep := range d.Episodes {
		if name, ok := files[ep.ID]; ok {
			fmt.Fprintf(&buf, "%d. [%s](%s)\n", i+1, ep.Title, name)
		} else {
			fmt.Fprintf(&buf, "%d. %s (not exported)\n", i+1, ep.Title)
		}
	}
	return buf.Bytes()
}

// WriteEpisodeFile writes one episode as Markdown into dir and returns the file path.
func WriteEpisodeFile(dir string, i int, book string, ep models.Episode) (string, error) {
	path := filepath.Join(dir, EpisodeFileName(i, ep))
	if err := os.WriteFile(path, []byte(media.EpisodeMarkdown(book, ep)), 0644); err != nil {
		return "", fmt.Errorf("failed to write episode file: %w", err)
	}
	return path, nil
}

// WriteBookIndex writes {dir}/README.md.
func WriteBookIndex(dir string, d *models.BookDetail, files map[models.ID]string, coverFile string) (string, error) {
	path := filepath.Join(dir, "README.md")
	if err := os.WriteFile(path, BookIndex(d, files, coverFile), 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return path, nil
}
