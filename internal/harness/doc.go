// Package harness provides conformance testing for form declarations.
//
// The harness loads a CUE schema, prepares a stored record and its
// attachments, submits data through the engine, and validates the saved
// record and attachment store as executable contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: gallery_update
//	description: "What this scenario validates"
//	schema: ../schema
//	form: article
//	record: {id: r1}
//	item_ids: [n1]
//	store_ids: [att-1]
//	uploads: [a.jpg]
//	stored:
//	  gallery: [{_id: a, caption: A}]
//	attachments:
//	  - {collection: image.gallery.a, ids: [att-1]}
//	submit:
//	  gallery: [{_id: a, caption: A2, image: {order: [att-1]}}]
//	assertions:
//	  - type: record_data
//	    path: gallery.0.caption
//	    expect: A2
//	  - type: collection
//	    collection: image.gallery.a
//	    ids: [att-1]
//
// Submissions may instead be given as flat keys under fields:, exactly as
// a browser posts them ("gallery[0][caption]": A2).
//
// # Assertion Types
//
//   - record_data: Checks the value at a dotted path of the saved record
//   - collection: Checks the ordered attachment ids of a collection
//   - address: Checks a field of the form bound to the saved record
//   - rule_key: Checks the form declares a wildcard validation rule key
//   - calls: Checks the exact sequence of attachment store calls
//
// # Deterministic Testing
//
// Item ids come from item_ids and upload and record ids from store_ids,
// in order. Each scenario runs against its own in-memory SQLite database,
// so the recorded attachment calls are identical across runs and can be
// compared with golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/gallery_create.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
