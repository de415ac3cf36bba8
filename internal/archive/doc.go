// Package archive implements the archive step: it identifies, tests, and
// extracts the archives of one context through 7-Zip.
//
// Each input file gets one working record. Records move through
//
//	INIT -> LIST_FAIL | LIST_VOLUME | LIST_SUCCESS
//	     -> TEST_SUCCESS | TEST_FAIL
//	     -> EXTRACT_SUCCESS | EXTRACT_FAIL
//
// and only the phases the configured mode needs are run. Every phase tries
// the password list in order, empty password first, and stops at the first
// accepted result. Phases run on their own bounded worker pool and finish
// completely before the next begins. Listing processes one directory per
// worker so split-archive members found next to an identified archive are
// absorbed rather than listed again.
//
// Extraction always targets a fresh scratch directory below the cache root.
// A successful attempt is moved to a free name in the output directory under
// a process-wide lock. Scratch directories are removed when the step ends,
// whatever the outcome.
//
// Per-file failures stay on the record. They are projected into the fail
// context and the report and never abort the step.
package archive
