// Package ui provides the Bubble Tea terminal interface for apodesk.
//
// The model never touches the pipeline directly. Requests go through the
// Controller interface (RequestRefresh, RequestApply) and return at once;
// progress arrives by polling a state.Store that the controller's observer
// keeps current. Every tick the model copies a fresh Snapshot and renders it.
//
// # Views
//
//   - Picture: a half-block preview of the cached image, its title,
//     copyright, size and explanation, plus recent pipeline activity
//   - Logs: the tail of the TUI's JSON log file, with auto-follow
//
// A header shows the pipeline phase (with a spinner while busy), picture
// age, consecutive failures and an OFFLINE badge after repeated network
// errors. Rejected requests show a short message in the status line.
//
// Image decoding and log reads run as tea.Cmds so the UI goroutine never
// blocks on disk or CPU heavy work. The decoded preview is cached per record
// and terminal size.
//
// # Key Bindings
//
//   - r: Fetch today's picture
//   - a or b: Set the picture as the desktop background
//   - p: Toggle the preview
//   - l: Toggle the log view
//   - Space: Pause or follow the log
//   - j/k, g/G, ctrl+u/ctrl+d: Scroll
//   - T: Cycle theme (saved to prefs)
//   - h or ?: Help
//   - q or ctrl+c: Quit
package ui
