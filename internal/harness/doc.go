// Package harness provides conformance testing for execution definitions.
//
// The harness loads a dataset into a fresh store, prepares and executes
// named documents against the SQL backend and checks fingerprints, data
// views and errors.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	now: 2024-03-20T12:00:00Z
//	dataset:
//	  workspace: ws1
//	  columns: [{name: region, type: text}, {name: amount, type: number}]
//	  rows: [[East, 100], [West, 30]]
//	  catalog:
//	    - {kind: label, identifier: label.region, uri: /gdc/md/ws1/obj/1, column: region}
//	    - {kind: fact, identifier: fact.amount, uri: /gdc/md/ws1/obj/3, column: amount}
//	executions:
//	  - name: by_region
//	    document:
//	      buckets: [...]
//	    offset: [0, 0]
//	    limit: [10, 10]
//	assertions:
//	  - type: same_fingerprint
//	    executions: [by_region, by_region_reordered]
//	  - type: view_equals
//	    execution: by_region
//	    data: [["100"], ["30"]]
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - same_fingerprint: the named executions share one fingerprint
//   - different_fingerprint: the named executions have pairwise distinct fingerprints
//   - view_equals: the view holds the expected data, header names or total count
//   - empty_view: the view is empty, optionally with an expected total count
//   - execution_error: the execution failed with the expected code
//
// # Deterministic Testing
//
// Relative date filters are evaluated against the scenario's fixed clock
// and results are read through an execution cache, so outcomes do not
// depend on the order in which steps run. Golden files hold the canonical
// definition tree, total count and data of every step.
package harness
