package errors

import "errors"

var (
	// not-found
	ErrVoteNotFound          = errors.New("vote not found")
	ErrMemberNotFound        = errors.New("council member not found")
	ErrDissentReportNotFound = errors.New("dissent report not found")
	ErrEmergencyMetaNotFound = errors.New("emergency metadata not found")

	// invalid-state
	ErrVoteNotOpen       = errors.New("vote is not open")
	ErrVoteStillOpen     = errors.New("vote has not closed yet")
	ErrBallotAlreadyCast = errors.New("member has already cast a ballot")
	ErrMemberNotEligible = errors.New("member is not an eligible voter")
	ErrNotPanelMember    = errors.New("member is not on the emergency panel")
	ErrVetoNotAuthorized = errors.New("member is not granted this veto domain")
	ErrNotEmergencyVote  = errors.New("vote was not created via the fast-track path")
	ErrNotOverturnable   = errors.New("vote is not eligible for overturn")
	ErrOverturnExists    = errors.New("an overturn vote already exists")
	ErrOverturnNotClosed = errors.New("overturn vote has not closed yet")

	// window-expired
	ErrDeadlinePassed       = errors.New("vote deadline has passed")
	ErrOverturnWindowClosed = errors.New("overturn window has closed")

	// configuration
	ErrInvalidThresholdClass = errors.New("invalid threshold class")
	ErrInvalidBallotOption   = errors.New("invalid ballot option")
	ErrInvalidCloseStatus    = errors.New("invalid closing status")
	ErrInvalidPanelSize      = errors.New("emergency panel size must be between 3 and 5")
	ErrInvalidOutcomeRating  = errors.New("outcome rating must be within [-1, 1]")
	ErrInvalidVoteInput      = errors.New("invalid vote input")
)
