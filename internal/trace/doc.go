// Package trace records what the lowering tool is doing.
//
// The driver attaches a tracer to the context; the lowering pass pulls it out
// again and opens spans per unit and per block, with point events for every
// rewrite and every instance whose class could not be resolved:
//
//	ctx = trace.WithTracer(ctx, t)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeUnit, "unit:a", trace.ParentSpan(ctx))
//	defer span.End("")
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: records nothing yet; accepted so scripts can pin it
//   - LevelPhase: driver and unit spans
//   - LevelDetail: block spans
//   - LevelDebug: per-operation points
//
// Storage is a stream (text or NDJSON), an in-memory ring, or both.
package trace
