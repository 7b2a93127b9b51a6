// Package reader decides which episodes a user may read and runs the purchase confirmation.
//
// Lock state is derived on the client: an episode is open when it is free, when the user
// wrote the book, or when the coin ledger holds a purchase of it. A [Flow] never spends
// coins without [Flow.Confirm] following an open [Prompt].
package reader
