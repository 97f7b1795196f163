package keys

import (
	"strings"
	"testing"
)

func TestKeysAreDeterministic(t *testing.T) {
	if UserProfile("alice") != UserProfile("alice") {
		t.Error("identical inputs must derive the identical key")
	}
	if Deposit("alice", 7) != Deposit("alice", 7) {
		t.Error("identical deposit inputs must derive the identical key")
	}
}

func TestKeysAreDistinctAcrossEntities(t *testing.T) {
	seen := map[string]string{}
	add := func(name, key string) {
		if prev, ok := seen[key]; ok {
			t.Errorf("key collision between %s and %s: %q", prev, name, key)
		}
		seen[key] = name
	}

	add("global", GlobalState())
	add("user alice", UserProfile("alice"))
	add("user bob", UserProfile("bob"))
	add("container alice", Container("alice")) // same id as a user, different kind
	add("deposit alice 0", Deposit("alice", 0))
	add("deposit alice 1", Deposit("alice", 1))
	add("deposit bob 0", Deposit("bob", 0))
	add("redemption alice 0", Redemption("alice", 0))
	add("collection alice 0", Collection("alice", 0))
}

func TestKeySegmentsCannotSmuggleSeparators(t *testing.T) {
	// A crafted owner id containing the separator must not alias another
	// entity's key space.
	crafted := Deposit("alice/"+sequence(1), 2)
	honest := Deposit("alice", 1)
	if crafted == honest {
		t.Fatalf("separator in owner id aliased another key: %q", crafted)
	}
	if strings.Count(crafted, "/") != strings.Count(honest, "/") {
		// Both keys keep exactly two separators regardless of input content.
		t.Errorf("escaping changed key shape: %q vs %q", crafted, honest)
	}
}

func TestSequenceOrdering(t *testing.T) {
	// Fixed-width sequences keep lexicographic order equal to numeric order.
	if !(Deposit("alice", 9) < Deposit("alice", 10)) {
		t.Error("sequence 9 should sort before sequence 10")
	}
	if !(Deposit("alice", 99) < Deposit("alice", 100)) {
		t.Error("sequence 99 should sort before sequence 100")
	}
}
