package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewClientValidate(t *testing.T) {
	good := NewClient{Name: " Ana ", BI: "1", Phone: "923", Location: "Morro Bento", Tap: "Central"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		in   NewClient
		want error
	}{
		{"name", NewClient{BI: "1", Phone: "9", Location: "l", Tap: "t"}, ErrEmptyName},
		{"bi", NewClient{Name: "a", Phone: "9", Location: "l", Tap: "t"}, ErrEmptyBI},
		{"phone", NewClient{Name: "a", BI: "1", Location: "l", Tap: "t"}, ErrEmptyPhone},
		{"location", NewClient{Name: "a", BI: "1", Phone: "9", Tap: "t"}, ErrEmptyLocation},
		{"tap", NewClient{Name: "a", BI: "1", Phone: "9", Location: "l", Tap: "   "}, ErrEmptyTap},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if !IsValidation(err) {
				t.Fatalf("expected a validation error")
			}
		})
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{Type: Saida, Category: Agua, Description: "Conta de água", Amount: Kz(8500)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []NewTransaction{
		{Type: Saida, Category: Agua, Description: "x", Amount: Money{}},
		{Type: Saida, Category: Agua, Description: "x", Amount: Kz(-1)},
		{Type: Saida, Category: Agua, Description: "  ", Amount: Kz(1)},
		{Type: "other", Category: Agua, Description: "x", Amount: Kz(1)},
		{Type: Entrada, Category: "rent", Description: "x", Amount: Kz(1)},
		{Type: Entrada, Category: Pagamento, Description: "x", Amount: Kz(1), Method: "card"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestClientToggleSignal(t *testing.T) {
	c := Client{HasSignal: true, MonthsWithoutPayment: 4, IsActive: false}

	c.ToggleSignal()
	if c.HasSignal || c.MonthsWithoutPayment != 4 || c.IsActive {
		t.Fatalf("switching off must keep the month counter: %+v", c)
	}

	c.ToggleSignal()
	if !c.HasSignal || c.MonthsWithoutPayment != 0 || !c.IsActive {
		t.Fatalf("switching on must reset the month counter: %+v", c)
	}
}

func TestClientApplyPayment(t *testing.T) {
	c := Client{Debt: Kz(3500), MonthsWithoutPayment: 5, HasSignal: false, IsActive: false}
	c.ApplyPayment(Payment{ID: "p1", Amount: Kz(10000), Date: time.Now()})

	if !c.Debt.IsZero() {
		t.Fatalf("debt must clamp at zero, got %v", c.Debt)
	}
	if c.MonthsWithoutPayment != 0 || !c.HasSignal || !c.IsActive {
		t.Fatalf("payment must restore standing: %+v", c)
	}
	if len(c.Payments) != 1 || c.Payments[0].ID != "p1" {
		t.Fatalf("payment not appended: %+v", c.Payments)
	}
}

func TestClientApplyUpdate(t *testing.T) {
	c := Client{Name: "Ana", Phone: "1", MonthsWithoutPayment: 0, IsActive: true}
	name := " Ana Beatriz "
	months := 3
	c.Apply(ClientUpdate{Name: &name, MonthsWithoutPayment: &months})

	if c.Name != "Ana Beatriz" {
		t.Fatalf("name not trimmed: %q", c.Name)
	}
	if c.Phone != "1" {
		t.Fatalf("unset field changed: %q", c.Phone)
	}
	if c.IsActive {
		t.Fatalf("isActive must follow the month counter")
	}
}

func TestClientIsInactive(t *testing.T) {
	cases := []struct {
		c    Client
		want bool
	}{
		{Client{IsActive: true, MonthsWithoutPayment: 0}, false},
		{Client{IsActive: false, MonthsWithoutPayment: 0}, true},
		{Client{IsActive: true, MonthsWithoutPayment: 3}, true},
	}
	for i, tc := range cases {
		if got := tc.c.IsInactive(); got != tc.want {
			t.Errorf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestClientClone(t *testing.T) {
	c := Client{Payments: []Payment{{ID: "a"}}}
	cp := c.Clone()
	cp.Payments[0].ID = "b"
	if c.Payments[0].ID != "a" {
		t.Fatalf("clone shares payments")
	}
}
