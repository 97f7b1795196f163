package keys

import (
	"fmt"
	"net/url"
)

// Derived storage keys. Identical inputs always produce the identical key and
// different logical entities never collide: every key starts with its kind
// tag, free-form segments are query-escaped so they cannot smuggle the '/'
// separator, and sequence numbers are rendered fixed-width.
const (
	globalStateKey       = "global_state"
	userProfileKeyPrefix = "user_profile"
	containerKeyPrefix   = "container"
	depositKeyPrefix     = "deposit"
	redemptionKeyPrefix  = "redemption"
	collectionKeyPrefix  = "collection"
)

// GlobalState returns the key of the singleton configuration record.
func GlobalState() string {
	return globalStateKey
}

// UserProfile returns the key of the profile owned by the given principal.
func UserProfile(owner string) string {
	return userProfileKeyPrefix + "/" + segment(owner)
}

// Container returns the key of a container record.
func Container(containerID string) string {
	return containerKeyPrefix + "/" + segment(containerID)
}

// Deposit returns the key of the seq-th deposit record of a user.
func Deposit(owner string, seq uint64) string {
	return depositKeyPrefix + "/" + segment(owner) + "/" + sequence(seq)
}

// Redemption returns the key of the seq-th redemption record of a user.
func Redemption(owner string, seq uint64) string {
	return redemptionKeyPrefix + "/" + segment(owner) + "/" + sequence(seq)
}

// Collection returns the key of the seq-th collection record of a container.
func Collection(containerID string, seq uint64) string {
	return collectionKeyPrefix + "/" + segment(containerID) + "/" + sequence(seq)
}

func segment(s string) string {
	return url.QueryEscape(s)
}

// sequence renders a counter as a zero-padded 20-digit decimal so keys sort
// lexicographically in sequence order. 20 digits covers the full uint64 range.
func sequence(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}
