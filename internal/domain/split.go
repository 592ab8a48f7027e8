package domain

import "fmt"

type splitKind uint8

const (
	splitUnevaluated splitKind = iota
	splitOriginal
	splitSuccessor
)

// SplitState records whether a group has been assessed for temporal gaps.
// The zero value is Unevaluated.
type SplitState struct {
	kind splitKind
	n    int
}

// Unevaluated marks a group that has never been through the splitter.
func Unevaluated() SplitState { return SplitState{} }

// Original marks an assessed group, split or not.
func Original() SplitState { return SplitState{kind: splitOriginal} }

// Successor marks the n-th group carved out of an original (n >= 1).
func Successor(n int) SplitState {
	if n < 1 {
		n = 1
	}
	return SplitState{kind: splitSuccessor, n: n}
}

// SplitStateFromIndex decodes the persisted integer form (-1, 0, n).
func SplitStateFromIndex(i int) (SplitState, error) {
	switch {
	case i == -1:
		return Unevaluated(), nil
	case i == 0:
		return Original(), nil
	case i > 0:
		return Successor(i), nil
	default:
		return SplitState{}, fmt.Errorf("invalid split index: %d", i)
	}
}

// Index returns the persisted integer form.
func (s SplitState) Index() int {
	switch s.kind {
	case splitOriginal:
		return 0
	case splitSuccessor:
		return s.n
	default:
		return -1
	}
}

func (s SplitState) IsUnevaluated() bool { return s.kind == splitUnevaluated }
func (s SplitState) IsOriginal() bool    { return s.kind == splitOriginal }
func (s SplitState) IsSuccessor() bool   { return s.kind == splitSuccessor }

func (s SplitState) String() string {
	switch s.kind {
	case splitOriginal:
		return "original"
	case splitSuccessor:
		return fmt.Sprintf("successor-%d", s.n)
	default:
		return "unevaluated"
	}
}
