// Package hopierr defines the small set of sentinel errors the rest of the
// module wraps and returns, so callers can distinguish failure kinds with
// errors.Is instead of parsing messages.
package hopierr

import "errors"

// ContractViolation marks a caller-supplied argument that violates a
// documented precondition (mismatched dimensions, an invalid policy, and
// the like). These are programming errors, not runtime conditions, and are
// usually detected at construction time.
var ContractViolation = errors.New("hopi: contract violation")

// GeometricDegeneracy marks an operation that could not produce a
// well-formed bound or split, such as an attempt to split a node whose
// entries are all coincident points with zero extent to scale by.
var GeometricDegeneracy = errors.New("hopi: geometric degeneracy")

// CollectiveFailure marks a distributed operation that could not complete
// because a participating rank failed, disagreed on shape, or a collective
// call observed inconsistent local state across the group.
var CollectiveFailure = errors.New("hopi: collective operation failed")

// DomainEmpty marks an attempt to partition, query, or report on a domain
// that holds no points on any rank.
var DomainEmpty = errors.New("hopi: domain is empty")
