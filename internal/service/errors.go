package service

import "errors"

var (
	ErrNoCandidates      = errors.New("election requires at least one candidate")
	ErrEmptyProvince     = errors.New("province has no population to allocate")
	ErrTurnStepFailed    = errors.New("turn processing step failed")
	ErrNoVotePassed      = errors.New("policy proposal has not passed a vote")
	ErrSchedulerShutdown = errors.New("turn scheduler is shut down")
)
