// Package engine implements the hubsync two-way synchronization pass.
//
// A pass mirrors several source collections into one hub collection. It runs
// in two sequential phases and then stops:
//
//  1. Reverse (hub to sources). Every hub record carrying a Source link is
//     compared with the source record it points at. A hub tombstone
//     (Deleted=true) is copied to the source and nothing else is. Otherwise
//     the hub's fields are copied when the hub is strictly newer.
//  2. Forward (sources to hub). Every live source record is looked up in the
//     hub by its Source link. Missing records are created; existing ones are
//     overwritten when the source is strictly newer.
//
// ARCHITECTURE:
//
// Leaf components are independent and individually testable:
//   - FetchAll: cursor pagination over a collection.
//   - Index: hub lookup by Source link, recomputed per call (never cached, so
//     records created during forward sync are visible to later lookups).
//   - Projector: per-kind copy and emptiness rules, Source stamping.
//   - Resolve: strict last-modified comparison; ties write nothing.
//
// Engine composes them. There is no persisted cursor and no queue: every pass
// rescans both sides and re-derives every decision from timestamps, so a
// crashed or cancelled pass is recovered by running the next one.
//
// IDEMPOTENCE:
//
// A winning side is only written when the destination does not already hold
// the projected values (record.Equivalent). Without this, a hub record
// created after its source would always look newer and be copied back on the
// next pass. Hosted files compare by name and type, since their signed URLs
// change on every read.
//
// LOOKUP:
//
// The hub is searched with a "contains" text filter on the Source link, so a
// link like r1 also matches r10. Among the results Index.Find prefers one
// whose link equals the source id exactly and falls back to the first result
// otherwise. Any lookup with more than one result logs a warning. Duplicate
// hub records for one source are not repaired; the first exact match is used.
//
// CONCURRENCY:
//
// A pass is strictly sequential. Engine refuses to start a second pass while
// one is running (ErrPassInProgress), but nothing prevents two processes from
// running passes against the same stores. The lookup-then-create step of the
// forward phase is a check-then-act race in that case and can create
// duplicate hub records, which then degrade as described under LOOKUP. Run a
// single hubsync process per hub.
//
// DELETION:
//
// Deletion flows hub to source only. A source with Deleted=true is skipped
// by the forward phase and its hub record is left untouched.
package engine
