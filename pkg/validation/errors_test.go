package validation

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   Kind
		wantOK bool
	}{
		{"invalid", Invalid("bad %d", 1), KindInvalid, true},
		{"not found", NotFound("missing"), KindNotFound, true},
		{"insufficient", Insufficient("few"), KindInsufficient, true},
		{"wrapped with fmt", fmt.Errorf("outer: %w", NotFound("x")), KindNotFound, true},
		{"plain error", errors.New("boom"), 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := KindOf(tt.err)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("KindOf() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := Invalid("Demand data has no variation; half-life analytics is not meaningful.")
	err := Wrap("simulation", inner)

	if err.Error() != "simulation: Demand data has no variation; half-life analytics is not meaningful." {
		t.Errorf("Wrap() message = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("Wrap() should keep the original error in the chain")
	}
	if k, _ := KindOf(err); k != KindInvalid {
		t.Errorf("Wrap() kind = %v, want %v", k, KindInvalid)
	}

	plain := errors.New("io")
	if Wrap("simulation", plain) != plain {
		t.Error("Wrap() should return non-validation errors unchanged")
	}
}

func TestKindString(t *testing.T) {
	if KindNotFound.String() != "not_found" || KindInsufficient.String() != "insufficient" || KindInvalid.String() != "invalid" {
		t.Error("unexpected Kind.String() values")
	}
}
