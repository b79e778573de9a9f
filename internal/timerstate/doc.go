// Package timerstate persists the per-task focus timers shared between the
// server and its clients.
//
// There is one TimerState per deployment. Every read projects elapsed running
// time across the gap since the last observation (catch-up), so a running
// timer behaves as continuously elapsing wall-clock time even across process
// restarts or client disconnects.
//
// Concurrent writers are not merged: each write overwrites the fields it
// supplies and the last write wins. Reconciliation is best-effort; several
// timers marked running at once are all advanced rather than rejected.
//
// Backends:
//   - MemoryBackend: process memory, for tests and ephemeral runs
//   - FileBackend: a JSON file written atomically through afero
//   - ValkeyBackend: a single key in Valkey
package timerstate
