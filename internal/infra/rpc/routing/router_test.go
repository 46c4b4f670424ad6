package routing

import (
	"errors"
	"testing"
)

func TestRouter_RotateProvider(t *testing.T) {
	r := NewRouter()
	r.AddProvider("node", &mockProvider{name: "a"})
	r.AddProvider("node", &mockProvider{name: "b"})

	p, err := r.GetProvider("node")
	if err != nil || p.GetName() != "a" {
		t.Fatalf("expected a, got %v (%v)", p, err)
	}

	p, _ = r.RotateProvider("node")
	if p.GetName() != "b" {
		t.Errorf("expected b after rotation, got %s", p.GetName())
	}
	all := r.GetAllProviders("node")
	if all[0].GetName() != "b" || all[1].GetName() != "a" {
		t.Errorf("unexpected order %v", all)
	}
}

func TestRouter_CircuitBreaker(t *testing.T) {
	r := NewRouter()
	r.AddProvider("node", &mockProvider{name: "a"})
	r.AddProvider("node", &mockProvider{name: "b"})

	for i := 0; i < circuitThreshold; i++ {
		r.RecordFailure("a", errors.New("boom"))
	}
	if !r.IsCircuitOpen("a") {
		t.Fatal("expected circuit to open")
	}

	p, err := r.GetProvider("node")
	if err != nil || p.GetName() != "b" {
		t.Errorf("expected b while a is open, got %v (%v)", p, err)
	}

	r.RecordSuccess("a", 0)
	if r.IsCircuitOpen("a") {
		t.Error("expected success to close the circuit")
	}
}

func TestRouter_Empty(t *testing.T) {
	if _, err := NewRouter().GetProvider("node"); err == nil {
		t.Error("expected error for empty pool")
	}
}
