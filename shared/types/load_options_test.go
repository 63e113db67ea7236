package types

import (
	"errors"
	"testing"
)

func TestLoadOptionsDefaultsNormalize(t *testing.T) {
	var zero LoadOptions
	if !zero.Equals(DefaultLoadOptions()) {
		t.Errorf("zero options should equal defaults: %q vs %q", zero.Key(), DefaultLoadOptions().Key())
	}
	if zero.Strict() || zero.Positional() {
		t.Error("zero options should be permissive and auto")
	}

	strict := LoadOptions{ElementPolicy: ElementPolicyStrict}
	if strict.Equals(zero) {
		t.Error("strict and permissive must have different keys")
	}
	if !strict.Strict() {
		t.Error("Strict() = false for strict policy")
	}
	if !(LoadOptions{Placement: PlacementPositional}).Positional() {
		t.Error("Positional() = false for positional placement")
	}
}

func TestLoadOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    LoadOptions
		wantErr bool
	}{
		{"empty", LoadOptions{}, false},
		{"explicit", LoadOptions{ElementPolicy: ElementPolicyStrict, Placement: PlacementPositional}, false},
		{"bad policy", LoadOptions{ElementPolicy: "lenient"}, true},
		{"bad placement", LoadOptions{Placement: "column-major"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var oe *OptionsError
			if tt.wantErr && !errors.As(err, &oe) {
				t.Errorf("expected *OptionsError, got %T", err)
			}
		})
	}
}
