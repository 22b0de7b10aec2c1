package rules

import (
	"errors"
	"testing"

	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
)

func TestRequiredApprovals(t *testing.T) {
	cases := []struct {
		name     string
		class    entities.ThresholdClass
		bodySize int
		want     int
	}{
		{"majority of 15", entities.ThresholdMajority, 15, 8},
		{"majority of 5", entities.ThresholdMajority, 5, 3},
		{"majority of 4", entities.ThresholdMajority, 4, 3},
		{"supermajority of 15", entities.ThresholdSupermajority, 15, 10},
		{"supermajority of 5", entities.ThresholdSupermajority, 5, 4},
		{"supermajority of 3", entities.ThresholdSupermajority, 3, 2},
		{"unanimity of 15", entities.ThresholdUnanimity, 15, 15},
		{"unanimity of 3", entities.ThresholdUnanimity, 3, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RequiredApprovals(tc.class, tc.bodySize)
			if err != nil {
				t.Fatalf("required approvals failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d required approvals, got %d", tc.want, got)
			}
		})
	}
}

func TestRequiredApprovalsUnknownClass(t *testing.T) {
	if _, err := RequiredApprovals(entities.ThresholdClass("plurality"), 5); !errors.Is(err, domainerrors.ErrInvalidThresholdClass) {
		t.Fatalf("expected invalid threshold class error, got %v", err)
	}
}

func TestEvaluateEarly(t *testing.T) {
	cases := []struct {
		name     string
		class    entities.ThresholdClass
		bodySize int
		approve  int
		reject   int
		abstain  int
		decided  bool
		passed   bool
	}{
		{"majority passes at the bar", entities.ThresholdMajority, 15, 8, 0, 0, true, true},
		{"majority fails at the bar", entities.ThresholdMajority, 15, 0, 8, 0, true, false},
		{"majority undecided below the bar", entities.ThresholdMajority, 15, 7, 6, 1, false, false},
		{"supermajority passes at the bar", entities.ThresholdSupermajority, 5, 4, 1, 0, true, true},
		{"supermajority fails when unreachable", entities.ThresholdSupermajority, 5, 1, 2, 1, true, false},
		{"supermajority undecided while reachable", entities.ThresholdSupermajority, 5, 3, 0, 0, false, false},
		{"unanimity fails on a single reject", entities.ThresholdUnanimity, 3, 2, 1, 0, true, false},
		{"unanimity passes on full approval", entities.ThresholdUnanimity, 3, 3, 0, 0, true, true},
		{"unanimity passes with abstentions", entities.ThresholdUnanimity, 5, 4, 0, 1, true, true},
		{"unanimity undecided while ballots remain", entities.ThresholdUnanimity, 5, 4, 0, 0, false, false},
		{"unanimity all abstain never passes", entities.ThresholdUnanimity, 3, 0, 0, 3, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome, err := EvaluateEarly(tc.class, tc.bodySize, tc.approve, tc.reject, tc.abstain)
			if err != nil {
				t.Fatalf("evaluate early failed: %v", err)
			}
			if outcome.Decided != tc.decided || outcome.Passed != tc.passed {
				t.Fatalf("expected decided=%t passed=%t, got decided=%t passed=%t",
					tc.decided, tc.passed, outcome.Decided, outcome.Passed)
			}
		})
	}
}
