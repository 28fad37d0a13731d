package catalog

import "github.com/google/uuid"

// The concrete shape of prerequisite expressions is owned by the
// metadata source and explicitly out of core scope (§9, "Prerequisite
// evaluation"). The small tree below is a reference implementation
// used by in-memory test fixtures and by MemorySource; production
// deployments supply their own PrerequisiteExpr drawn from the
// metadata source's actual expression format.

// RequireInstalled is a leaf predicate: true iff the given GUID is a
// member of the installed non-leaf set.
type RequireInstalled struct {
	GUID uuid.UUID
}

// Evaluate implements PrerequisiteExpr.
func (r RequireInstalled) Evaluate(installedNonLeaf map[uuid.UUID]struct{}) bool {
	_, ok := installedNonLeaf[r.GUID]
	return ok
}

// AllOf is true iff every child expression is true.
type AllOf []PrerequisiteExpr

// Evaluate implements PrerequisiteExpr.
func (a AllOf) Evaluate(installedNonLeaf map[uuid.UUID]struct{}) bool {
	for _, child := range a {
		if !child.Evaluate(installedNonLeaf) {
			return false
		}
	}
	return true
}

// AnyOf is true iff at least one child expression is true.
type AnyOf []PrerequisiteExpr

// Evaluate implements PrerequisiteExpr.
func (a AnyOf) Evaluate(installedNonLeaf map[uuid.UUID]struct{}) bool {
	for _, child := range a {
		if child.Evaluate(installedNonLeaf) {
			return true
		}
	}
	return false
}
