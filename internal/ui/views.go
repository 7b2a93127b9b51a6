package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/folio/internal/media"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/notify"
	"github.com/dustin/go-humanize"
)

// View renders the UI based on the current view state. Modals cover the active view.
func (m *Model) View() string {
	if len(m.notices) > 0 {
		return m.place(m.renderNotice(m.notices[0], len(m.notices)-1))
	}
	if m.unlockOpen() {
		return m.place(m.renderUnlock())
	}

	switch m.view {
	case ResolvingView:
		return styles.muted.Render("Resolving session…")
	case LoginView:
		return m.renderLogin()
	case BrowseView:
		return m.renderBrowse()
	case BookView:
		return m.renderBook()
	case ReaderView:
		return m.renderReader()
	case CoinsView:
		return m.renderCoins()
	case NotificationsView:
		return m.renderNotifications()
	default:
		return ""
	}
}

func (m *Model) place(s string) string {
	if m.width == 0 || m.height == 0 {
		return s
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Sign in to folio"))
	b.WriteString("\n")
	b.WriteString(m.email.View() + "\n")
	b.WriteString(m.password.View() + "\n\n")
	switch {
	case m.busy:
		b.WriteString(styles.muted.Render("Signing in…") + "\n")
	case m.loginErr != "":
		b.WriteString(styles.err.Render(m.loginErr) + "\n")
	}
	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sign in"))
	next := key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field"))
	quit := key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit"))
	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{submit, next, quit}))
	return b.String()
}

func (m *Model) renderBrowse() string {
	var b strings.Builder
	header := "folio"
	if sess := m.gate.Store().Current(); sess != nil {
		header = fmt.Sprintf("folio • %s", sess.User.DisplayName())
	}
	b.WriteString(styles.title.Render(header))
	b.WriteString("\n")
	b.WriteString(m.search.View() + "\n")
	b.WriteString(m.renderGenres() + "\n\n")

	sections := m.browser.Sections()
	if len(sections) == 0 {
		if m.browser.Loading() {
			b.WriteString(styles.muted.Render("Loading…") + "\n")
		} else {
			b.WriteString(styles.muted.Render("No books found.") + "\n")
		}
	}
	for si, s := range sections {
		b.WriteString(m.renderSection(si, s.Genre, s.Page.Books, s.Page.CurrentPage))
	}
	if m.browser.Loading() && len(sections) > 0 {
		b.WriteString(styles.muted.Render("Refreshing…") + "\n")
	}

	keys := []key.Binding{m.keys.search, m.keys.genre, m.keys.clear, m.keys.section, m.keys.nextPage, m.keys.prevPage, m.keys.enter, m.keys.coins, m.keys.notices, m.keys.quit}
	b.WriteString("\n" + m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderGenres() string {
	selected := make(map[string]bool)
	for _, g := range m.browser.Selection() {
		selected[g] = true
	}
	parts := make([]string, 0, len(m.browser.Genres()))
	for i, g := range m.browser.Genres() {
		mark := "[ ]"
		if selected[g.Value] {
			mark = "[x]"
		}
		label := fmt.Sprintf("%s %d %s", mark, i+1, g.DisplayName())
		if selected[g.Value] {
			label = styles.selected.Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderSection(index int, g models.Genre, books []models.BookSummary, page int) string {
	var b strings.Builder
	title := fmt.Sprintf("%s (page %d)", g.DisplayName(), page)
	if index == m.section {
		title = styles.selected.Render("▸ " + title)
	}
	b.WriteString(title + "\n")
	for bi, book := range books {
		prefix := "  "
		if index == m.section && bi == m.cursor {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%s  %s★", prefix, book.Title, book.AvgRating)
		if prefix == "> " {
			line = styles.selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.browser.ShowPagination(g.Value) || m.browser.HasNextPage(g.Value) || page > 1 {
		pager := fmt.Sprintf("  ‹ page %d", page)
		if m.browser.HasNextPage(g.Value) {
			pager += " ›"
		}
		b.WriteString(styles.help.Render(pager) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderBook() string {
	book := m.shelf.Book()
	var b strings.Builder
	b.WriteString(styles.title.Render(book.Title))
	b.WriteString("\n")
	info := []string{}
	if book.PenName != "" {
		info = append(info, "by "+book.PenName)
	}
	info = append(info, fmt.Sprintf("%s★", book.AvgRating))
	if cats := book.Categories(); len(cats) > 0 {
		info = append(info, strings.Join(cats, ", "))
	}
	info = append(info, fmt.Sprintf("%s coins", humanize.Comma(int64(m.shelf.Balance()))))
	if m.follow.Following() {
		info = append(info, styles.ok.Render("following"))
	}
	if m.shelf.IsAuthor() {
		info = append(info, styles.ok.Render("author"))
	}
	b.WriteString(styles.muted.Render(strings.Join(info, " • ")) + "\n\n")
	b.WriteString(m.episodes.View())

	keys := []key.Binding{m.keys.enter, m.keys.unlock, m.keys.follow}
	if m.shelf.IsAuthor() {
		keys = append(keys, m.keys.unlockAll)
	}
	keys = append(keys, m.keys.coins, m.keys.back, m.keys.quit)
	b.WriteString("\n\n" + m.help.ShortHelpView(keys))
	return b.String()
}

// renderEpisode formats an episode for the reader viewport.
func renderEpisode(book string, ep models.Episode, width int) string {
	text := media.EpisodeMarkdown(book, ep)
	if ep.HasMedia() {
		text += "\n\n" + styles.help.Render("Press o to open the episode's media.")
	}
	if width > 4 {
		return lipgloss.NewStyle().Width(width - 2).Render(text)
	}
	return text
}

func (m *Model) renderReader() string {
	footer := styles.muted.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100))
	open := key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open media"))
	keys := []key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit}
	if m.episode != nil && m.episode.HasMedia() {
		keys = append(keys, open)
	}
	return fmt.Sprintf("%s\n%s  %s", m.viewport.View(), footer, m.help.ShortHelpView(keys))
}

func ledgerColumns() []table.Column {
	return []table.Column{
		{Title: "When", Width: 16},
		{Title: "Type", Width: 14},
		{Title: "Amount", Width: 8},
		{Title: "Description", Width: 32},
	}
}

func ledgerRows(l *models.CoinLedger, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(l.Transactions))
	for _, tx := range l.Transactions {
		amount := "+" + humanize.Comma(int64(tx.Amount))
		if tx.Type.Debit() {
			amount = "-" + humanize.Comma(int64(tx.Amount))
		}
		rows = append(rows, table.Row{
			humanize.RelTime(tx.CreatedAt.Time, now, "ago", "from now"),
			string(tx.Type),
			amount,
			tx.Description,
		})
	}
	return rows
}

func (m *Model) renderCoins() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Coins"))
	b.WriteString("\n")
	if m.ledger == nil {
		b.WriteString(styles.muted.Render("Loading…"))
		return b.String()
	}
	now := m.now()
	b.WriteString(fmt.Sprintf("Balance: %s coins\n\n", styles.ok.Render(humanize.Comma(int64(m.ledger.TotalCoins)))))

	cal := media.NewCalendar(*m.ledger, now)
	b.WriteString(cal.String())
	b.WriteString(fmt.Sprintf("\n%d check-ins this month • streak %d\n", cal.CheckedInDays(), media.Streak(*m.ledger, now)))
	if m.ledger.CheckedInOn(now) {
		b.WriteString(styles.ok.Render("Checked in today") + "\n\n")
	} else {
		b.WriteString(styles.warn.Render("Not checked in today") + "\n\n")
	}

	if len(m.ledger.Transactions) == 0 {
		b.WriteString(styles.muted.Render("No transactions.") + "\n")
	} else {
		b.WriteString(m.ledgerTable.View() + "\n")
	}
	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{m.keys.checkin, m.keys.up, m.keys.down, m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *Model) renderNotifications() string {
	if !m.notificationsSet {
		return styles.title.Render("Notifications") + "\n" + styles.muted.Render("Loading…")
	}
	if len(m.notifications) == 0 {
		return styles.title.Render("Notifications") + "\n" + styles.muted.Render("Nothing new.") +
			"\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	}
	return m.notificationList.View() + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
}

func (m *Model) renderUnlock() string {
	p := m.flow.State().Prompt
	var b strings.Builder
	if p.Insufficient {
		b.WriteString(styles.err.Render("Not enough coins") + "\n\n")
		b.WriteString(fmt.Sprintf("%q costs %s coins.\n", p.Title, humanize.Comma(int64(p.Price))))
		b.WriteString(fmt.Sprintf("Your balance is %s coins.\n\n", humanize.Comma(int64(p.Balance))))
		b.WriteString(styles.help.Render("esc close"))
		return styles.modal.Render(b.String())
	}

	b.WriteString(styles.title.Render(fmt.Sprintf("Unlock %q?", p.Title)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Price:   %s coins\n", humanize.Comma(int64(p.Price))))
	b.WriteString(fmt.Sprintf("Balance: %s coins\n\n", humanize.Comma(int64(p.Balance))))
	if p.Pending {
		b.WriteString(styles.muted.Render("Unlocking…"))
	} else {
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no}))
	}
	return styles.modal.Render(b.String())
}

func (m *Model) renderNotice(e notify.Event, queued int) string {
	title := e.Title
	switch e.Severity {
	case notify.Error:
		title = styles.err.Render(title)
	case notify.Warning:
		title = styles.warn.Render(title)
	case notify.Success:
		title = styles.ok.Render(title)
	default:
		title = styles.selected.Render(title)
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	if e.Message != "" {
		b.WriteString(e.Message + "\n\n")
	}
	b.WriteString(styles.selected.Render("[ OK ]"))
	if queued > 0 {
		b.WriteString(styles.muted.Render(fmt.Sprintf("  (%d more)", queued)))
	}
	return styles.modal.Render(b.String())
}
