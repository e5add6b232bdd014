// Package internal contains the implementation packages of shelfsearch.
//
// # Package Organization
//
//   - debounce: generic trailing-edge debouncer with an injectable clock
//   - rowfilter: case-insensitive substring filtering of table rows
//   - source: loads catalog tables from YAML, JSON, CSV, HTML and SQLite
//   - livesearch: per-input search sessions over a shared catalog
//   - config: Viper-backed configuration with validation
//   - errors: structured errors with codes and predicates
//   - logging: structured logging on log/slog
//   - watcher: debounced file change notifications
//   - websocket: live search hub, one session per connection
//   - middleware: HTTP middleware chain
//   - server: HTTP server for /ws and /healthz with catalog hot reload
//   - tui: terminal browse view
//   - version: build metadata
//   - testutils: fake scheduler and fixtures for tests
//
// # Inter-Package Communication
//
//   - A livesearch.Session owns a debounce.Debouncer and filters a snapshot
//     of the catalog with rowfilter when the input settles
//   - The websocket hub creates one session per client and forwards results
//   - The watcher reports source changes; the server reloads the catalog
//     through source and asks the hub to refresh every client
//   - The tui and the filter command drive sessions from the terminal
//
// # Concurrency
//
// The shared catalog is never filtered in place: every search works on a
// clone, so sessions do not see each other's visibility flags. Debounced
// actions run on timer goroutines; everything they touch is guarded.
package internal
