package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewRejectsNegative(t *testing.T) {
	if _, err := FromInt(-1); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if _, err := New(decimal.RequireFromString("-0.01")); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount for fractional negative, got %v", err)
	}
	m, err := FromInt(0)
	if err != nil {
		t.Fatalf("zero should be valid: %v", err)
	}
	if !m.IsZero() {
		t.Fatalf("expected zero amount, got %s", m)
	}
}

func TestArithmetic(t *testing.T) {
	a := MustFromInt(100)
	b := MustFromInt(30)

	if got := a.Add(b); !got.Equal(MustFromInt(130)) {
		t.Fatalf("expected 130, got %s", got)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if !diff.Equal(MustFromInt(70)) {
		t.Fatalf("expected 70, got %s", diff)
	}

	if _, err := b.Sub(a); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient, got %v", err)
	}

	// operands are untouched
	if !a.Equal(MustFromInt(100)) || !b.Equal(MustFromInt(30)) {
		t.Fatalf("operands mutated: a=%s b=%s", a, b)
	}
}

func TestComparison(t *testing.T) {
	small := MustFromInt(5)
	large := MustFromInt(10)

	if !large.GreaterThanOrEqual(small) || !large.GreaterThanOrEqual(large) {
		t.Fatal("GreaterThanOrEqual returned false for larger or equal amount")
	}
	if small.GreaterThanOrEqual(large) {
		t.Fatal("GreaterThanOrEqual returned true for smaller amount")
	}
	if !small.LessThan(large) {
		t.Fatal("LessThan returned false for smaller amount")
	}

	half, err := Parse("1.50")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !half.Equal(decimalMoney(t, "1.5")) {
		t.Fatalf("expected 1.50 == 1.5")
	}
}

func TestJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: decimalMoney(t, "100.5")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"amount":100.5}` {
		t.Fatalf("unexpected json %s", payload)
	}

	var decoded struct {
		Amount Money `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount":"42"}`), &decoded); err != nil {
		t.Fatalf("unmarshal string amount: %v", err)
	}
	if !decoded.Amount.Equal(MustFromInt(42)) {
		t.Fatalf("expected 42, got %s", decoded.Amount)
	}

	if err := json.Unmarshal([]byte(`{"amount":-3}`), &decoded); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount decoding negative, got %v", err)
	}
}

func decimalMoney(t *testing.T, s string) Money {
	t.Helper()
	m, err := Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return m
}
