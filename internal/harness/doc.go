// Package harness runs conformance scenarios against a furnace controller.
//
// A scenario drives a fresh in-memory ledger through a flow of ignite, sinter
// and cooldown calls, checks each outcome against its expect clause and then
// evaluates assertions over the recorded trace and the final ledger state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	thermal_enforcement: false
//	setup:
//	  - action: ignite
//	    caller: alice
//	    args: { initial_temp: 3000 }
//	flow:
//	  - invoke: sinter
//	    caller: alice
//	    args: { data: "payload", pressure: 120 }
//	    expect:
//	      case: Success
//	      result: { block_index: 0 }
//	assertions:
//	  - type: trace_order
//	    actions: [ignite, sinter]
//	  - type: final_state
//	    table: furnaces
//	    where: { authority: alice }
//	    expect: { total_sintered_blocks: 1 }
//
// The target of a step defaults to the caller's own furnace; set `target` to
// another identity to act on its furnace. Sinter takes either `data`, which
// is prepared as feedstock, or a hex `data_hash`.
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with matching args
//   - trace_order: actions appear in the given order
//   - trace_count: an action appears exactly N times
//   - final_state: a furnace or block snapshot holds the expected fields
//   - journal: the journal of a furnace holds exactly the given event kinds
//
// # Deterministic Testing
//
// Every run uses testutil.DeterministicClock, sequential request IDs and an
// in-memory SQLite store, so traces are reproducible and can be compared
// against golden files.
package harness
