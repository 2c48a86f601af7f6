package registry

import "testing"

func TestRegistryRegisterGet(t *testing.T) {
	r := NewBaseRegistry[int]()

	if err := r.Register("a", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok := r.Get("a")
	if !ok || v != 1 {
		t.Fatalf("expected 1, got %v (ok=%v)", v, ok)
	}

	if err := r.Register("a", 2); err == nil {
		t.Fatal("expected error registering duplicate name")
	}

	if err := r.Register("", 3); err == nil {
		t.Fatal("expected error registering empty name")
	}
}

func TestRegistryListAndNamesPreserveOrder(t *testing.T) {
	r := NewBaseRegistry[string]()
	_ = r.Register("local", "l")
	_ = r.Register("claude", "c")
	_ = r.Register("gemini", "g")

	if got := r.Names(); got[0] != "local" || got[1] != "claude" || got[2] != "gemini" {
		t.Fatalf("unexpected order: %v", got)
	}

	if r.Count() != 3 {
		t.Fatalf("expected count 3, got %d", r.Count())
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewBaseRegistry[int]()
	_ = r.Register("a", 1)
	_ = r.Register("b", 2)

	if err := r.Remove("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := r.Get("a"); ok {
		t.Fatal("expected a to be removed")
	}

	if err := r.Remove("missing"); err == nil {
		t.Fatal("expected error removing missing item")
	}
}
