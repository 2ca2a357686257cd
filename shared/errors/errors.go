package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Wallet / client side
	ErrorTypeProviderMissing    ErrorType = "PROVIDER_MISSING"
	ErrorTypeUserRejected       ErrorType = "USER_REJECTED"
	ErrorTypeSignatureRejected  ErrorType = "SIGNATURE_REJECTED"
	ErrorTypeWrongNetwork       ErrorType = "WRONG_NETWORK"
	ErrorTypeWalletNotConnected ErrorType = "WALLET_NOT_CONNECTED"
	ErrorTypeInsufficientFunds  ErrorType = "INSUFFICIENT_FUNDS_OR_GAS"
	ErrorTypeInvalidParameters  ErrorType = "INVALID_PARAMETERS"

	// Marketplace
	ErrorTypeNoListings         ErrorType = "NO_LISTINGS_AVAILABLE"
	ErrorTypePreparationFailed  ErrorType = "PREPARATION_FAILED"
	ErrorTypeTransactionFailed  ErrorType = "TRANSACTION_FAILED"
	ErrorTypePurchaseFailed     ErrorType = "PURCHASE_FAILED"
	ErrorTypeCancellationFailed ErrorType = "CANCELLATION_FAILED"
	ErrorTypeListingFailed      ErrorType = "LISTING_FAILED"
	ErrorTypeValidation         ErrorType = "VALIDATION"

	// Catch-all
	ErrorTypeOperationFailed ErrorType = "OPERATION_FAILED"
)

// Error represents a structured error carrying the modal title and message
// shown to the user.
type Error struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Stack   []string               `json:"-"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same type, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithDetails adds details to the error
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithTitle overrides the default modal title.
func (e *Error) WithTitle(title string) *Error {
	e.Title = title
	return e
}

func captureStack() []string {
	var stack []string
	for i := 2; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn != nil && !strings.Contains(fn.Name(), "runtime.") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		}
	}
	return stack
}

// New creates a new error with the default title for its type.
func New(errorType ErrorType, code, message string) *Error {
	return &Error{
		Type:    errorType,
		Code:    code,
		Title:   defaultTitle(errorType),
		Message: message,
		Stack:   captureStack(),
	}
}

func defaultTitle(t ErrorType) string {
	switch t {
	case ErrorTypeProviderMissing:
		return "Wallet Not Found"
	case ErrorTypeUserRejected:
		return "Transaction Rejected"
	case ErrorTypeSignatureRejected:
		return "Signature Rejected"
	case ErrorTypeWrongNetwork:
		return "Wrong Network"
	case ErrorTypeWalletNotConnected:
		return "Wallet Not Connected"
	case ErrorTypeInsufficientFunds:
		return "Insufficient Funds"
	case ErrorTypeInvalidParameters:
		return "Invalid Transaction"
	case ErrorTypeNoListings:
		return "No Listings"
	case ErrorTypeTransactionFailed:
		return "Transaction Failed"
	case ErrorTypePurchaseFailed, ErrorTypePreparationFailed:
		return "Purchase Failed"
	case ErrorTypeCancellationFailed:
		return "Cancellation Failed"
	case ErrorTypeListingFailed:
		return "Listing Failed"
	case ErrorTypeValidation:
		return "Invalid Input"
	default:
		return "Operation Failed"
	}
}

// Common error constructors

func ProviderMissing() *Error {
	return New(ErrorTypeProviderMissing, "PROVIDER_MISSING",
		"No wallet provider found. Please install or configure a wallet.")
}

func UserRejected() *Error {
	return New(ErrorTypeUserRejected, "USER_REJECTED",
		"You rejected the transaction in your wallet.")
}

func SignatureRejected() *Error {
	return New(ErrorTypeSignatureRejected, "SIGNATURE_REJECTED",
		"You rejected the signature request in your wallet.")
}

func WrongNetwork(expected, actual string) *Error {
	return New(ErrorTypeWrongNetwork, "WRONG_NETWORK",
		"Please switch your wallet to Immutable zkEVM.").
		WithDetails("expected_chain", expected).
		WithDetails("actual_chain", actual)
}

func WalletNotConnected() *Error {
	return New(ErrorTypeWalletNotConnected, "WALLET_NOT_CONNECTED",
		"Please connect your wallet first.")
}

func InsufficientFunds() *Error {
	return New(ErrorTypeInsufficientFunds, "INSUFFICIENT_FUNDS_OR_GAS",
		"You do not have enough funds to cover the price and gas fees.")
}

func InvalidParameters() *Error {
	return New(ErrorTypeInvalidParameters, "INVALID_PARAMETERS",
		"The transaction parameters were rejected by your wallet.")
}

func NoListings() *Error {
	return New(ErrorTypeNoListings, "NO_LISTINGS_AVAILABLE",
		"There are no listings available for this card.")
}

// PreparationFailed carries the backend-supplied message verbatim.
func PreparationFailed(message string) *Error {
	return New(ErrorTypePreparationFailed, "PREPARATION_FAILED", message)
}

func TransactionFailed(txHash string) *Error {
	return New(ErrorTypeTransactionFailed, "TRANSACTION_FAILED",
		"The transaction failed on-chain.").
		WithDetails("tx_hash", txHash)
}

func PurchaseFailed(message string) *Error {
	return New(ErrorTypePurchaseFailed, "PURCHASE_FAILED", message)
}

func CancellationFailed(message string) *Error {
	return New(ErrorTypeCancellationFailed, "CANCELLATION_FAILED", message)
}

func ListingFailed(message string) *Error {
	return New(ErrorTypeListingFailed, "LISTING_FAILED", message)
}

func ValidationError(field string, constraint string) *Error {
	return New(ErrorTypeValidation, "VALIDATION_ERROR",
		fmt.Sprintf("Validation failed for '%s': %s", field, constraint)).
		WithDetails("field", field).
		WithDetails("constraint", constraint)
}

func OperationFailed(message string) *Error {
	return New(ErrorTypeOperationFailed, "OPERATION_FAILED", message)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if e, ok := As(err); ok {
		return e.Type == errorType
	}
	return false
}

// GetCode returns the error code if it's our error type
func GetCode(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return "UNKNOWN"
}

// Present converts any error into the (title, message) pair of the error modal.
func Present(err error) (title, message string) {
	if err == nil {
		return "", ""
	}
	if e, ok := As(err); ok {
		return e.Title, e.Message
	}
	return defaultTitle(ErrorTypeOperationFailed), err.Error()
}
