package payroll

import "errors"

var (
	ErrPaymentNotFound      = errors.New("payment record not found")
	ErrPaymentSettled       = errors.New("payment for this period is already settled")
	ErrPaymentAlreadyPaid   = errors.New("payment record already paid")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrMissingWageConfig    = errors.New("worker has no wage configuration")
	ErrUnknownWageType      = errors.New("unknown wage type")
	ErrWorkerNotFound       = errors.New("worker not found")
	ErrInvalidPeriod        = errors.New("invalid payroll period")
)
