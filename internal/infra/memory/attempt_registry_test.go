package memory

import "testing"

func TestAttemptRegistryLifecycle(t *testing.T) {
	registry := NewAttemptRegistry()

	if _, ok := registry.Get("missing"); ok {
		t.Fatalf("expected empty registry")
	}

	registry.Remove("missing") // removing an unknown id is a no-op

	if _, ok := registry.Get("missing"); ok {
		t.Fatalf("expected registry still empty")
	}
}
