// Package validator implements the block validator (component C3): pure,
// read-view-only checks that turn a candidate block into either a typed
// error or a mutation Plan. Grounded on the teacher's consensus/validate.go
// ordered-check structure and consensus/errors.go typed-error pattern,
// generalized from UTXO transaction checks to account-chain block checks.
package validator

import "fmt"

// ErrorCode is the stable block-processing error kind set.
type ErrorCode string

const (
	Progress            ErrorCode = "PROGRESS"
	BadSignature        ErrorCode = "BAD_SIGNATURE"
	Old                 ErrorCode = "OLD"
	NegativeSpend       ErrorCode = "NEGATIVE_SPEND"
	Fork                ErrorCode = "FORK"
	Unreceivable        ErrorCode = "UNRECEIVABLE"
	GapPrevious         ErrorCode = "GAP_PREVIOUS"
	GapSource           ErrorCode = "GAP_SOURCE"
	GapEpochOpenPending ErrorCode = "GAP_EPOCH_OPEN_PENDING"
	OpenedBurnAccount   ErrorCode = "OPENED_BURN_ACCOUNT"
	BalanceMismatch     ErrorCode = "BALANCE_MISMATCH"
	RepresentativeMismatch ErrorCode = "REPRESENTATIVE_MISMATCH"
	BlockPosition       ErrorCode = "BLOCK_POSITION"
	InsufficientWork    ErrorCode = "INSUFFICIENT_WORK"
)

// ValidationError pairs a stable code with a human-readable detail, the same
// shape the teacher uses for its TxError.
type ValidationError struct {
	Code ErrorCode
	Msg  string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func verr(code ErrorCode, format string, args ...any) error {
	return &ValidationError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err if it is a *ValidationError,
// reporting ok=false otherwise (e.g. a store I/O error, which is fatal and
// not part of this stable set).
func CodeOf(err error) (code ErrorCode, ok bool) {
	ve, ok := err.(*ValidationError)
	if !ok {
		return "", false
	}
	return ve.Code, true
}
