// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI resolves the stored session first and only then shows a view:
//  1. [LoginView] : Sign in when no live session exists
//  2. [BrowseView] : Search, toggle genres and page through each genre's books
//  3. [BookView] : Book detail with the episode list and lock markers
//  4. [ReaderView] : Scrollable episode text
//  5. [CoinsView] : Balance, check-in calendar and ledger table
//  6. [NotificationsView] : New-episode notifications
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Browse changes and dispatched notifications arrive over channels and are turned into messages one at a time,
// so background fetches re-render the view without blocking the update loop. Unlock confirmations and
// notifications render as modals over the active view; a notification is dismissed with "OK" (enter).
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
