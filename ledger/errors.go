package ledger

import "fmt"

// ErrorCode taxonomizes every way a submitted transaction can fail
// (§7), mirroring the teacher's *TxError{Code, Msg} pattern.
type ErrorCode string

const (
	DoubleClaim       ErrorCode = "DOUBLE_CLAIM"
	DoubleSpend       ErrorCode = "DOUBLE_SPEND"
	AlreadyCommitted  ErrorCode = "ALREADY_COMMITTED"
	UnknownFundTx     ErrorCode = "UNKNOWN_FUND_TX"
	UnknownPrevTx     ErrorCode = "UNKNOWN_PREV_TX"
	IndexOutOfRange   ErrorCode = "INDEX_OUT_OF_RANGE"
	OverClaim         ErrorCode = "OVER_CLAIM"
	OverSpend         ErrorCode = "OVER_SPEND"
	ScriptMismatch    ErrorCode = "SCRIPT_MISMATCH"
	SelfReference     ErrorCode = "SELF_REFERENCE"
	ChainTooDeep      ErrorCode = "CHAIN_TOO_DEEP"
	StorageCorruption ErrorCode = "STORAGE_CORRUPTION"
	SignatureInvalid  ErrorCode = "SIGNATURE_INVALID"
)

// Error is the typed error every Submit/query failure in this package
// surfaces as.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func ledgerErr(code ErrorCode, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}
