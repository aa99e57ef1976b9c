package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// WorkspaceHeader carries the workspace every /v1 request is scoped to.
const WorkspaceHeader = "X-Workspace-ID"

var (
	ErrInvalidWorkspace  = errors.New("invalid workspace")
	ErrWorkspaceMismatch = errors.New("workspace mismatch")
)

// parseWorkspaceID accepts only the canonical 36-character hyphenated form.
// uuid.Parse on its own also takes braced, urn:uuid: and bare-hex spellings.
func parseWorkspaceID(raw string) (uuid.UUID, error) {
	if len(raw) != 36 {
		return uuid.Nil, errors.New("not a hyphenated UUID")
	}
	return uuid.Parse(raw)
}

// resolveWorkspace reads and parses the workspace header.
func resolveWorkspace(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(WorkspaceHeader))
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s header required", ErrInvalidWorkspace, WorkspaceHeader)
	}
	id, err := parseWorkspaceID(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", ErrInvalidWorkspace, WorkspaceHeader)
	}
	return id, nil
}

// matchWorkspace checks a body workspace id against the header's. An empty
// body value is allowed; the header alone then decides.
func matchWorkspace(header uuid.UUID, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	id, err := parseWorkspaceID(body)
	if err != nil {
		return fmt.Errorf("%w: workspaceId must be a UUID", ErrInvalidWorkspace)
	}
	if id != header {
		return fmt.Errorf("%w: body workspaceId %s does not match %s %s", ErrWorkspaceMismatch, id, WorkspaceHeader, header)
	}
	return nil
}
