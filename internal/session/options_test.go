package session

import "testing"

func seededSet(labels ...string) *OptionSet {
	set := NewOptionSet()
	set.Seed(labels)
	return set
}

func TestSeedAssignsIndexKeys(t *testing.T) {
	set := seededSet("a", "b", "c")

	live := set.Live()
	if len(live) != 3 {
		t.Fatalf("expected 3 live options, got %d", len(live))
	}
	if live[0].Key != "0" || live[0].Label != "a" {
		t.Fatalf("unexpected first option %+v", live[0])
	}
	if live[2].Key != "2" || live[2].Label != "c" {
		t.Fatalf("unexpected last option %+v", live[2])
	}
}

func TestClickParksOption(t *testing.T) {
	set := seededSet("a", "b", "c")

	if !set.Click("1") {
		t.Fatal("click on a live key should succeed")
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 live options after parking, got %d", set.Len())
	}
	parked := set.Parked()
	if parked == nil || parked.Key != "1" || parked.Label != "b" {
		t.Fatalf("unexpected parked option %+v", parked)
	}
}

func TestClickSwapsParkedOption(t *testing.T) {
	set := seededSet("a", "b", "c")
	set.Click("1")
	sizeBefore := set.Len()

	if !set.Click("2") {
		t.Fatal("click on a live key should succeed")
	}
	if set.Len() != sizeBefore {
		t.Fatalf("live set size changed: %d -> %d", sizeBefore, set.Len())
	}
	if parked := set.Parked(); parked == nil || parked.Key != "2" {
		t.Fatalf("expected option 2 parked, got %+v", set.Parked())
	}
	if !set.IsListed("b") {
		t.Fatal("previously parked option should be live again")
	}
}

func TestClickSameKeyIsIdempotent(t *testing.T) {
	set := seededSet("a", "b")
	set.Click("0")

	if !set.Click("0") {
		t.Fatal("re-clicking the parked option should succeed")
	}
	if set.Len() != 1 {
		t.Fatalf("expected 1 live option, got %d", set.Len())
	}
	if parked := set.Parked(); parked == nil || parked.Key != "0" || parked.Label != "a" {
		t.Fatalf("unexpected parked option %+v", set.Parked())
	}
}

func TestClickUnknownKey(t *testing.T) {
	set := seededSet("a")
	if set.Click("9") {
		t.Fatal("click on an unknown key should fail")
	}
	if set.Parked() != nil {
		t.Fatal("unknown click must not park anything")
	}
}

func TestSeedIsIdempotentAndClearsParked(t *testing.T) {
	set := seededSet("a", "b")
	set.Click("0")

	set.Seed([]string{"a", "b"})
	set.Seed([]string{"a", "b"})

	if set.Parked() != nil {
		t.Fatal("seed should clear the parked option")
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 live options, got %d", set.Len())
	}
}

func TestIsNonOption(t *testing.T) {
	set := seededSet("a", "b")
	set.Click("1")

	if set.IsNonOption("a") {
		t.Fatal("live label should count as an option")
	}
	if set.IsNonOption("b") {
		t.Fatal("parked label should count as an option")
	}
	if !set.IsNonOption("something else") {
		t.Fatal("free text should count as a non-option")
	}

	empty := NewOptionSet()
	if !empty.IsNonOption("anything") {
		t.Fatal("any draft against an empty set is a non-option")
	}
}

func TestKeyForPrefersParked(t *testing.T) {
	set := seededSet("same", "same")
	set.Click("1")

	key, ok := set.KeyFor("same")
	if !ok || key != "1" {
		t.Fatalf("expected parked key 1, got %q ok=%v", key, ok)
	}
}
