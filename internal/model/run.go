package model

import "time"

// RunStatus represents the current state of a prediction run.
type RunStatus string

const (
	RunStatusLoading    RunStatus = "loading"
	RunStatusExecuting  RunStatus = "executing"
	RunStatusPersisting RunStatus = "persisting"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Run is one complete, independently identified execution of the prediction
// engine over one property's current evidence.
type Run struct {
	ID              string    `json:"id"`
	AddressID       string    `json:"address_id"`
	Status          RunStatus `json:"status"`
	ModelVersion    string    `json:"model_version"`
	FieldsPredicted int       `json:"fields_predicted"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
