// Package tasks runs account operations that touch many endpoints, with real-time progress reporting.
//
// # Core Operations
//
//  1. [Engine.Dump] : Snapshot of the signed-in account
//     - Coins and transaction ledger
//     - Reading history and notifications
//     - Bookmarks for every configured genre, fetched concurrently
//
//  2. [Engine.ExportBook] : Write a book to Markdown
//     - Derives lock state from the coin ledger; locked episodes are skipped, never bought
//     - Fetches and writes unlocked episodes concurrently, extracting PDF text where needed
//     - Optionally saves a resized cover and writes a README index
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Partial Failure
//
// A failing endpoint or episode is recorded in the result and the operation continues.
// Only a canceled context or an unusable output directory aborts.
package tasks
