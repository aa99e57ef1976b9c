// Package domain defines the core business types of the insight engine:
// CRO suggestions, campaign metrics, job ledger entries and the values the
// insight pipeline passes between crawl, prompt and completion.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they are the wire format)
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants and enums belong here
package domain
