package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound        = errors.New("resource not found") // General not found
	ErrSessionNotFound = errors.New("game session not found")
	ErrCohortNotFound  = errors.New("demographic cohort not found")
	ErrPolicyNotFound  = errors.New("policy not found")

	// Invalid-state errors: ошибки порядка вызовов, их нельзя молча глотать
	ErrPolicyAlreadyResolved   = errors.New("policy is already enacted or superseded")
	ErrPolicyNotEnacted        = errors.New("policy is not in enacted status")
	ErrCampaignAlreadyComplete = errors.New("campaign boost has already been applied")
	ErrTurnInProgress          = errors.New("turn processing is already in progress for this session")
	ErrSessionNotActive        = errors.New("game session is not active")

	// Внешний AI-коллаборатор вернул неразбираемый ответ
	ErrMalformedAIResponse = errors.New("malformed AI collaborator response")

	ErrInvalidInput = errors.New("invalid input data")
)
