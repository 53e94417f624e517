// Package trace provides structured protocol capture for senshub.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, client).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Trace = trace.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Trace, _ = trace.NewFileLogger("/var/log/senshub/client.shlog")
//
//	// Both: use MultiLogger
//	cfg.Trace = trace.NewMultiLogger(
//	    trace.NewSlogAdapter(slog.Default()),
//	    trace.NewFileLogger("/var/log/senshub/client.shlog"),
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw frame bytes (FrameEvent)
//   - Wire: Decoded commands and reports (CommandEvent, ReportEvent)
//   - Client: State changes (StateChangeEvent)
//
// Errors have a dedicated event type and may occur at any layer.
//
// # File Format
//
// Trace files use CBOR encoding with .shlog extension. The senshub-trace
// CLI tool provides viewing and filtering.
package trace
