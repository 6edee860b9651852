// Copyright (c) 2026 The Stakewell developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures. Every validation failure aborts the
// triggering call atomically; InvariantViolation must never occur in correct
// operation and is treated as fatal by tests.
type Kind uint8

const (
	KindInvariantViolation Kind = iota + 1
	KindInvalidValidator
	KindInsufficientLiquidity
	KindTooEarly
	KindReentrantCall
	KindUnauthorized
	KindInvalidParameter
)

func (k Kind) String() string {
	switch k {
	case KindInvariantViolation:
		return "invariant violation"
	case KindInvalidValidator:
		return "invalid validator"
	case KindInsufficientLiquidity:
		return "insufficient liquidity"
	case KindTooEarly:
		return "too early"
	case KindReentrantCall:
		return "reentrant call"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidParameter:
		return "invalid parameter"
	default:
		return "unknown"
	}
}

// ErrRevert is a failed validation carrying its classification.
type ErrRevert struct {
	kind    Kind
	message string
}

func (e *ErrRevert) Error() string {
	return e.kind.String() + ": " + e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func newRevert(kind Kind, format string, args ...any) *ErrRevert {
	return &ErrRevert{kind: kind, message: fmt.Sprintf(format, args...)}
}

func InvariantViolation(format string, args ...any) *ErrRevert {
	return newRevert(KindInvariantViolation, format, args...)
}

func InvalidValidator(format string, args ...any) *ErrRevert {
	return newRevert(KindInvalidValidator, format, args...)
}

func InsufficientLiquidity(format string, args ...any) *ErrRevert {
	return newRevert(KindInsufficientLiquidity, format, args...)
}

func TooEarly(format string, args ...any) *ErrRevert {
	return newRevert(KindTooEarly, format, args...)
}

func ReentrantCall() *ErrRevert {
	return newRevert(KindReentrantCall, "nested entry into mutating operation")
}

func Unauthorized(format string, args ...any) *ErrRevert {
	return newRevert(KindUnauthorized, format, args...)
}

func InvalidParameter(format string, args ...any) *ErrRevert {
	return newRevert(KindInvalidParameter, format, args...)
}

// IsRevert reports whether err is a classified revert.
func IsRevert(err error) bool {
	var re *ErrRevert
	return errors.As(err, &re)
}

func isKind(err error, kind Kind) bool {
	var re *ErrRevert
	if !errors.As(err, &re) {
		return false
	}
	return re.kind == kind
}

func IsInvariantViolation(err error) bool {
	return isKind(err, KindInvariantViolation)
}

func IsInvalidValidator(err error) bool {
	return isKind(err, KindInvalidValidator)
}

func IsInsufficientLiquidity(err error) bool {
	return isKind(err, KindInsufficientLiquidity)
}

func IsTooEarly(err error) bool {
	return isKind(err, KindTooEarly)
}

func IsReentrantCall(err error) bool {
	return isKind(err, KindReentrantCall)
}

func IsUnauthorized(err error) bool {
	return isKind(err, KindUnauthorized)
}

func IsInvalidParameter(err error) bool {
	return isKind(err, KindInvalidParameter)
}
