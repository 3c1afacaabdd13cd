package repositories

import "errors"

var (
	ErrBalanceNotFound       = errors.New("account balance not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrRunNotFound           = errors.New("reconciliation run not found")
	ErrRefundRequestNotFound = errors.New("refund request not found")
)
