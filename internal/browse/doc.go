// Package browse implements the genre browser: one independently paged book list per genre,
// filtered by a debounced search term and an optional genre selection.
//
// The controller owns all browse state. Renderers read it through [Controller.Sections],
// [Controller.Loading] and friends, and re-render when [Controller.Events] fires.
package browse
