// Package insight turns a page into CRO suggestions: it crawls the page,
// renders a goal-specific prompt, asks the completion provider and parses
// the structured answer. Nothing is stored between calls.
package insight
