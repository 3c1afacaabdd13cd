package errors

var (
	ErrPaymentNotFound = &DomainError{
		Code:    "PAYMENT_NOT_FOUND",
		Message: "payment not found",
	}
	ErrNotRefundable = &DomainError{
		Code:    "NOT_REFUNDABLE",
		Message: "only completed payments can be refunded",
	}
	// ErrAlreadyRefunded signals an idempotent no-op: the refund was
	// already applied. Handlers treat it as success, not failure.
	ErrAlreadyRefunded = &DomainError{
		Code:    "ALREADY_REFUNDED",
		Message: "payment has already been refunded",
	}
	ErrGateway = &DomainError{
		Code:    "GATEWAY_ERROR",
		Message: "payment gateway unavailable",
	}
	ErrInvalidSignature = &DomainError{
		Code:    "INVALID_SIGNATURE",
		Message: "signature verification failed",
	}
	ErrRefundQueued = &DomainError{
		Code:    "REFUND_QUEUED",
		Message: "merchant balance cannot cover refund, queued for operator",
	}
	ErrInvalidBankAccount = &DomainError{
		Code:    "INVALID_BANK_ACCOUNT",
		Message: "bank account number or bank code is invalid",
	}
	ErrRequestNotFound = &DomainError{
		Code:    "REFUND_REQUEST_NOT_FOUND",
		Message: "refund request not found",
	}
	ErrRequestNotActionable = &DomainError{
		Code:    "REFUND_REQUEST_NOT_ACTIONABLE",
		Message: "refund request is not awaiting operator action",
	}
)
