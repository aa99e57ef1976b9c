// Package jobledger records the ACK/DONE/FAIL events automation runs report
// for their jobs. The ledger is an append-only audit trail: every call adds
// a row and nothing is de-duplicated, so a retried ACK shows up twice.
//
// Appended entries can also be fanned out to an event Publisher (SQS in
// production) for downstream consumers.
package jobledger
