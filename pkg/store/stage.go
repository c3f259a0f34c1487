package store

import "fmt"

// Stage is one discrete phase of the marketplace conversation
type Stage string

const (
	StageWelcome         Stage = "Welcome"
	StageProductSearch   Stage = "ProductSearch"
	StageProductQA       Stage = "ProductQA"
	StageCollectInfo     Stage = "CollectInfo"
	StageConfirmPurchase Stage = "ConfirmPurchase"
	StageThankYou        Stage = "ThankYou"
)

// stageOrder is the intended progression. It is guidance for the classifier,
// the state machine does not enforce it unless running in strict mode.
var stageOrder = []Stage{
	StageWelcome,
	StageProductSearch,
	StageProductQA,
	StageCollectInfo,
	StageConfirmPurchase,
	StageThankYou,
}

// AllStages returns the stages in their intended order
func AllStages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage maps an exact stage name onto the enumeration
func ParseStage(name string) (Stage, error) {
	for _, s := range stageOrder {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", name)
}

// Valid reports whether s is one of the enumerated stages
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of s in the intended order, or -1
func (s Stage) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsGrounded reports whether the stage's prompt needs retrieved product content
func (s Stage) IsGrounded() bool {
	return s == StageProductSearch || s == StageProductQA
}

func (s Stage) String() string {
	return string(s)
}
