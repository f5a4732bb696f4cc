// Package ime implements the composition-event protocol that sits between
// a host text field and a pluggable Composer.
//
// # Architecture Overview
//
// Every key event the host receives goes through Engine.HandleEvent. The
// engine forwards it to the Composer, interprets the ProcessResult and
// drives the Controller, which is the only code that mutates the
// InputClient or notifies the Host:
//
//	host ── HandleEvent ──▶ Engine ── Handle ──▶ Composer
//	                          │
//	                          ▼
//	                     Controller ── InsertText ──▶ InputClient
//	                          │
//	                          └──── Update/Cancel ──▶ Host
//
// # Results
//
//	┌──────────────────────────────┬───────────────────────────────────────┐
//	│ ProcessResult                │ Engine behavior                       │
//	├──────────────────────────────┼───────────────────────────────────────┤
//	│ NotProcessed                 │ commit, update if needed, host keeps  │
//	│ Processed                    │ commit, update if needed, host drops  │
//	│ NotProcessedAndNeedsCancel   │ cancel, commit, update if needed      │
//	│ NotProcessedAndNeedsCommit   │ cancel, commit, return (no update)    │
//	│ anything else                │ ErrProtocolViolation                  │
//	└──────────────────────────────┴───────────────────────────────────────┘
//
// After a NotProcessed or Processed result the host receives exactly one
// UpdateComposition when text was committed, the client has a non-empty
// selection, or the composed string was non-empty before or after the
// event. Otherwise it receives none.
//
// # Commit Triggers
//
// A commit requested from outside an event (CommitComposition on focus
// loss, a mode switch through SetValue) cancels the in-progress
// composition before draining the commit buffer. Commits that belong to
// an event or a candidate selection do not. The distinction is carried by
// an unexported trigger value passed down the call chain, so no state
// survives between calls.
//
// # Concurrency
//
// An Engine is not safe for concurrent use. Hosts that receive events on
// several goroutines must serialize calls themselves.
//
// # Observability
//
// Engines report through an Observer. LogObserver writes structured logs
// with log/slog and MetricsObserver counts events in a metrics.Registry;
// Observers combines several. Committed text is never logged.
package ime
