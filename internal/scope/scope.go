// Package scope builds tenant-scoped query descriptors. Every read or write
// against a tenant-scoped table goes through Scoped, which refuses to produce
// a descriptor without a workspace filter. The guard is a pure, stateless
// factory; value escaping is the data layer's job, never done here.
package scope

import (
	"fmt"

	"github.com/google/uuid"
)

// TenantField is the column every tenant-scoped table is partitioned on.
const TenantField = "workspace_id"

// SecurityError reports a query built without a workspace filter. It aborts
// the operation before any network call and names the resource so the failure
// is actionable in logs. It never carries filter values.
type SecurityError struct {
	Resource string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("refusing to build query for %q: missing required %s filter", e.Resource, TenantField)
}

type Predicate struct {
	Field string
	Value string
}

// Query is a descriptor for a single tenant-scoped operation. The workspace
// predicate is always first and can never be removed; caller-added predicates
// are additive, including further predicates on the tenant field.
type Query struct {
	resource   string
	predicates []Predicate
}

// Scoped builds a query descriptor pre-filtered to the given workspace. The
// workspace id is treated as an opaque token; any non-empty string is
// accepted.
func Scoped(resource, workspaceID string) (*Query, error) {
	if workspaceID == "" {
		return nil, &SecurityError{Resource: resource}
	}
	return &Query{
		resource:   resource,
		predicates: []Predicate{{Field: TenantField, Value: workspaceID}},
	}, nil
}

// ScopedID is Scoped for uuid-typed workspace ids; uuid.Nil counts as missing.
func ScopedID(resource string, workspaceID uuid.UUID) (*Query, error) {
	if workspaceID == uuid.Nil {
		return nil, &SecurityError{Resource: resource}
	}
	return Scoped(resource, workspaceID.String())
}

// Where appends an equality predicate. Appending never replaces an existing
// predicate, so a second filter on the tenant field narrows the query rather
// than widening it.
func (q *Query) Where(field, value string) *Query {
	q.predicates = append(q.predicates, Predicate{Field: field, Value: value})
	return q
}

func (q *Query) Resource() string {
	return q.resource
}

// WorkspaceID returns the value of the mandatory tenant predicate.
func (q *Query) WorkspaceID() string {
	return q.predicates[0].Value
}

// Predicates returns a copy of the predicate list, tenant filter first.
func (q *Query) Predicates() []Predicate {
	out := make([]Predicate, len(q.predicates))
	copy(out, q.predicates)
	return out
}
