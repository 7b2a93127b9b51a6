package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	yes       key.Binding
	no        key.Binding
	search    key.Binding
	genre     key.Binding
	clear     key.Binding
	nextPage  key.Binding
	prevPage  key.Binding
	section   key.Binding
	unlock    key.Binding
	unlockAll key.Binding
	follow    key.Binding
	coins     key.Binding
	notices   key.Binding
	checkin   key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		no:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "cancel")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		genre:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "toggle genre")),
		clear:     key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "all genres")),
		nextPage:  key.NewBinding(key.WithKeys("]", "l"), key.WithHelp("]/l", "next page")),
		prevPage:  key.NewBinding(key.WithKeys("[", "h"), key.WithHelp("[/h", "prev page")),
		section:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next section")),
		unlock:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unlock")),
		unlockAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "unlock all")),
		follow:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
		coins:     key.NewBinding(key.WithKeys("$"), key.WithHelp("$", "coins")),
		notices:   key.NewBinding(key.WithKeys("!"), key.WithHelp("!", "notifications")),
		checkin:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "check in")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.search, k.genre, k.clear, k.section, k.nextPage, k.prevPage},
		{k.unlock, k.unlockAll, k.follow, k.yes, k.no},
		{k.coins, k.notices, k.checkin, k.quit},
	}
}
