package rules

import (
	"math"

	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
)

// RequiredApprovals maps a threshold class to the approval count needed for a
// body of the given size: majority is the smallest integer strictly greater
// than half, supermajority is ceiling(0.66*n), unanimity is n.
func RequiredApprovals(class entities.ThresholdClass, bodySize int) (int, error) {
	switch class {
	case entities.ThresholdMajority:
		return bodySize/2 + 1, nil
	case entities.ThresholdSupermajority:
		return int(math.Ceil(0.66 * float64(bodySize))), nil
	case entities.ThresholdUnanimity:
		return bodySize, nil
	default:
		return 0, domainerrors.ErrInvalidThresholdClass
	}
}

// EarlyOutcome is the result of evaluating a still-open vote after a ballot.
type EarlyOutcome struct {
	Decided bool
	Passed  bool
}

// EvaluateEarly decides whether an open vote can conclude before every
// eligible member has responded.
//
// Unanimity: a single reject fails immediately; a full tally with no rejects
// and at least one approve passes (abstentions allowed). Supermajority:
// passes as soon as approvals reach the bar, fails as soon as the bar is
// mathematically unreachable. Majority: passes at the majority count of
// approvals, fails at the majority count of rejections.
func EvaluateEarly(class entities.ThresholdClass, bodySize, approve, reject, abstain int) (EarlyOutcome, error) {
	cast := approve + reject + abstain
	remaining := bodySize - cast

	required, err := RequiredApprovals(class, bodySize)
	if err != nil {
		return EarlyOutcome{}, err
	}

	switch class {
	case entities.ThresholdUnanimity:
		if reject > 0 {
			return EarlyOutcome{Decided: true, Passed: false}, nil
		}
		if remaining <= 0 && approve >= 1 {
			return EarlyOutcome{Decided: true, Passed: true}, nil
		}
	case entities.ThresholdSupermajority:
		if approve >= required {
			return EarlyOutcome{Decided: true, Passed: true}, nil
		}
		if approve+remaining < required {
			return EarlyOutcome{Decided: true, Passed: false}, nil
		}
	case entities.ThresholdMajority:
		if approve >= required {
			return EarlyOutcome{Decided: true, Passed: true}, nil
		}
		if reject >= required {
			return EarlyOutcome{Decided: true, Passed: false}, nil
		}
	}
	return EarlyOutcome{}, nil
}
