// Package registry keeps the classification metadata of every dimension seen
// in an analysis session: functional type, GPS tolerance tags, angular
// position and profile-group membership.
//
// Profiles are created with heuristic defaults the first time a dimension
// name is seen and are never deleted or reset by later parses. Fields the
// operator edits are recorded as overrides, which survive re-parsing and
// merge imports.
//
// A Registry is not safe for concurrent use; the owning session serialises
// access.
package registry
