// Package media turns episode payloads into something a terminal can show.
//
// Episode bodies may be HTML from the web editor or plain text; [ToMarkdown] normalizes
// both. PDF attachments are reduced to their text with [PDFText], cover art is fetched and
// scaled with [SaveCover], and [NewCalendar] lays out the daily check-in month.
package media
