package errors

var (
	ErrInsufficientBalance = &DomainError{
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient available balance",
	}
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "invalid amount",
	}
	ErrBalanceNotFound = &DomainError{
		Code:    "BALANCE_NOT_FOUND",
		Message: "account balance not found",
	}
	ErrConsistency = &DomainError{
		Code:    "LEDGER_INCONSISTENT",
		Message: "ledger replay disagrees with maintained balance",
	}
)
