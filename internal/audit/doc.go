// Package audit implements async dispatching of session lifecycle events.
//
// # Components
//
//   - [Event]: one lifecycle record; [Event.Attrs] renders it for slog.
//   - [Dispatcher]: buffered relay running sinks on its own goroutine. A full
//     buffer either drops the event or blocks the caller.
//   - Sinks: [ChannelSink], [JSONWriterSink], [LogSink], [NoOpSink], plus
//     [Fanout] and [SinkFunc] for composition.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; the session manager does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on session state.
//   - Import authsession or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
