// Package harness runs sync scenarios against an in-process store.
//
// A scenario seeds records, then alternates sync passes with edits made
// "upstream" (directly on the store, as a person editing a page would). Each
// pass runs the real engine, and every write it makes is captured by a
// store.Journal so the run can be compared with a golden trace.
//
// # Scenario Format
//
//	name: hub_edit_flows_back
//	description: "An edit on the hub reaches the source on the next pass"
//	hub: hub
//	sources: [tasks]
//	records:
//	  - collection: tasks
//	    id: t1
//	    properties:
//	      Name: {title: "Write report"}
//	      Points: {number: 3}
//	steps:
//	  - pass: {}
//	  - edit:
//	      hub_of: t1
//	      properties: {Points: {number: 8}}
//	  - pass: {}
//	assertions:
//	  - type: source_record
//	    id: t1
//	    expect: {Points: 8}
//
// Property values use a one-key shorthand naming the kind: title, text,
// number, select, multi_select, checkbox, date, url, email, phone.
//
// # Steps
//
//   - pass: run one sync pass ({dry_run: true} withholds writes)
//   - edit: update a record by id, or the hub record linked to hub_of
//   - archive: remove a record upstream
//   - fail: make a store operation fail ({op: update, target: t1})
//   - heal: clear every injected failure
//
// # Assertion Types
//
//   - hub_count: number of live hub records
//   - hub_record: the hub record linked to a source matches expect
//   - no_hub_record: no hub record links to a source
//   - source_record: a record read by id matches expect
//   - pass_writes: number of writes made by pass N
//   - pass_errors: number of errors reported by pass N
//
// # Deterministic Testing
//
// Every write is stamped by testutil.DeterministicClock and new records get
// ids rec-1, rec-2, ... so traces are identical across runs.
package harness
