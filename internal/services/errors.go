package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientRank     = errors.New("user level too low for this product")
	ErrWalletMissing        = errors.New("wallet not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")
	ErrNotFound             = errors.New("record not found")
	ErrTrialActive          = errors.New("user already has an active trial fund")
)

// ValidationError collects field problems found before any business logic runs.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Add(field, problem string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = problem
}

// Err returns nil when no problem was recorded.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
