package domain

import "testing"

func TestSplitStateFromIndex(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		wantState SplitState
		wantStr   string
		wantErr   bool
	}{
		{name: "unevaluated", index: -1, wantState: Unevaluated(), wantStr: "unevaluated"},
		{name: "original", index: 0, wantState: Original(), wantStr: "original"},
		{name: "first successor", index: 1, wantState: Successor(1), wantStr: "successor-1"},
		{name: "later successor", index: 7, wantState: Successor(7), wantStr: "successor-7"},
		{name: "invalid", index: -2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitStateFromIndex(tt.index)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for index %d", tt.index)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantState {
				t.Errorf("got %v, want %v", got, tt.wantState)
			}
			if got.Index() != tt.index {
				t.Errorf("Index() = %d, want %d", got.Index(), tt.index)
			}
			if got.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", got.String(), tt.wantStr)
			}
		})
	}
}

func TestSplitStateZeroValueIsUnevaluated(t *testing.T) {
	var s SplitState
	if !s.IsUnevaluated() {
		t.Errorf("zero value should be unevaluated, got %v", s)
	}
	if s.Index() != -1 {
		t.Errorf("zero value index = %d, want -1", s.Index())
	}
}

func TestSuccessorClampsToOne(t *testing.T) {
	if got := Successor(0).Index(); got != 1 {
		t.Errorf("Successor(0).Index() = %d, want 1", got)
	}
}
