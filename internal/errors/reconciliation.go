package errors

var (
	ErrReconciliationRunning = &DomainError{
		Code:    "RECONCILIATION_RUNNING",
		Message: "reconciliation already running for this window",
	}
	ErrRunNotFound = &DomainError{
		Code:    "RUN_NOT_FOUND",
		Message: "reconciliation run not found",
	}
)
