// Package models defines the domain entities exchanged with the reading platform backend.
//
// The package contains three groups of types:
//
// 1. Catalog: [Genre], [BookSummary], [Book], [BookDetail], [Episode] and the paged [BookPage].
//
// 2. Account: [User], [Session], [CoinLedger] with its [Transaction] entries, [HistoryEntry] and [Notification].
//
// 3. Wire scalars: [ID], [Coins], [Rating], [Flag] and [Timestamp] accept the loosely typed
// JSON the backend emits (numbers as strings, booleans as 0/1, several date layouts) so
// callers never inspect raw shapes.
//
// Types here carry no behavior beyond small derived accessors; fetching lives in services and
// state machines in browse and reader.
package models
