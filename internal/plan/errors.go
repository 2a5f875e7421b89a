package plan

import "errors"

var (
	ErrPlan         = errors.New("invalid build plan")
	ErrUnknownStage = errors.New("unknown stage")
)
