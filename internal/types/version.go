package types

// Versioned is implemented by every replicated entity. The version starts at
// 1 and increments by exactly one on each committed mutation, which is what
// lets consumers order and deduplicate events without a broker-level
// sequence.
type Versioned interface {
	EntityVersion() uint
	SetEntityVersion(v uint)
}

// ApplyMutation runs patch against entity and bumps the version only when
// patch reports an actual change. Saving an entity untouched must not
// advance its version, otherwise consumers would see gaps for no-op updates.
func ApplyMutation(entity Versioned, patch func() (changed bool)) bool {
	if !patch() {
		return false
	}
	entity.SetEntityVersion(entity.EntityVersion() + 1)
	return true
}

// NextVersionOK reports whether incoming is the exact successor of local.
func NextVersionOK(incoming, local uint) bool {
	return incoming == local+1
}

// IsStaleVersion reports whether incoming has already been applied locally.
// Stale deliveries are acknowledged and dropped; anything newer than local+1
// is a gap and must be retried instead.
func IsStaleVersion(incoming, local uint) bool {
	return incoming <= local
}
