package models

import (
	"errors"
	"testing"
)

func TestValidateTransitionLinearChain(t *testing.T) {
	chain := []OrderStatus{StatusConfirmed, StatusPreparing, StatusReady, StatusOnTheWay, StatusDelivered}
	for i := 0; i < len(chain)-1; i++ {
		if err := ValidateTransition(chain[i], chain[i+1]); err != nil {
			t.Fatalf("expected %s -> %s to be legal, got %v", chain[i], chain[i+1], err)
		}
	}
}

func TestValidateTransitionNoOpAllowed(t *testing.T) {
	for _, s := range []OrderStatus{StatusConfirmed, StatusPreparing, StatusReady, StatusOnTheWay, StatusDelivered} {
		if err := ValidateTransition(s, s); err != nil {
			t.Fatalf("expected no-op transition %s -> %s to succeed, got %v", s, s, err)
		}
	}
}

func TestValidateTransitionRejectsSkips(t *testing.T) {
	err := ValidateTransition(StatusPreparing, StatusDelivered)
	if err == nil {
		t.Fatal("expected PREPARING -> DELIVERED to be rejected")
	}

	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %T", err)
	}
	if invalid.From != StatusPreparing || invalid.To != StatusDelivered {
		t.Fatalf("unexpected error detail: %+v", invalid)
	}
}

func TestValidateTransitionRejectsBackward(t *testing.T) {
	cases := [][2]OrderStatus{
		{StatusPreparing, StatusConfirmed},
		{StatusReady, StatusPreparing},
		{StatusOnTheWay, StatusReady},
		{StatusDelivered, StatusOnTheWay},
	}
	for _, c := range cases {
		if err := ValidateTransition(c[0], c[1]); err == nil {
			t.Fatalf("expected backward transition %s -> %s to be rejected", c[0], c[1])
		}
	}
}

func TestValidateTransitionConfirmedCannotGoOnTheWay(t *testing.T) {
	if err := ValidateTransition(StatusConfirmed, StatusOnTheWay); err == nil {
		t.Fatal("expected CONFIRMED -> ON_THE_WAY to be rejected")
	}
	if err := ValidateTransition(StatusReady, StatusOnTheWay); err != nil {
		t.Fatalf("expected READY -> ON_THE_WAY to be legal, got %v", err)
	}
}

func TestNextStatusTerminal(t *testing.T) {
	if got := NextStatus(StatusDelivered); got != "" {
		t.Fatalf("expected DELIVERED to have no successor, got %s", got)
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []OrderStatus{StatusConfirmed, StatusPreparing, StatusReady, StatusOnTheWay, StatusDelivered} {
		if !IsValidStatus(s) {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if IsValidStatus("CANCELLED") {
		t.Fatal("expected CANCELLED to be invalid")
	}
	if IsValidStatus("") {
		t.Fatal("expected empty status to be invalid")
	}
}
