// Package diag defines the diagnostic model shared by the IR loader, the
// validator and the lowering pass.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with a stable string form.
//   - Message – short, actionable text.
//   - Primary – the source.Loc (unit, block, op index) of the finding.
//   - Notes – optional secondary locations, e.g. the instantiate an
//     unresolved use was traced back to.
//
// # Emitting diagnostics
//
// Phases emit through a Reporter so storage stays decoupled. ReportBuilder
// (NewReportBuilder, ReportError/ReportWarning/ReportInfo) chains WithNote
// before Emit. BagReporter collects into a Bag, which supports sorting,
// filtering and merging. DedupReporter drops repeats.
//
// The lowering pass reports every unresolved class as a LowerUnresolvedClass
// warning so callers can build a strict mode on top of the diagnostics alone.
//
// Rendering lives in internal/diagfmt; FormatShortDiagnostics here is the
// plain single-line form used by tests and the --format=short CLI output.
package diag
