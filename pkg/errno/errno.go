package errno

// Errno defines the error code logic
type Errno struct {
	Code    int
	Message string
}

func (e Errno) Error() string {
	return e.Message
}

// WithMessage returns a copy with the same code and a specific message
func (e Errno) WithMessage(msg string) Errno {
	e.Message = msg
	return e
}

// Decode tries to convert an error to Errno
func Decode(err error) (int, string) {
	if err == nil {
		return OK.Code, OK.Message
	}

	switch typed := err.(type) {
	case *Errno:
		return typed.Code, typed.Message
	case Errno:
		return typed.Code, typed.Message
	default:
		return InternalServerError.Code, err.Error()
	}
}

// Common Errors
var (
	OK                  = Errno{Code: 0, Message: "Success"}
	InternalServerError = Errno{Code: 10001, Message: "Internal server error"}
	ErrBind             = Errno{Code: 10002, Message: "Error occurred while binding the request body to the struct"}
	ErrTokenInvalid     = Errno{Code: 10003, Message: "Token invalid"}
	ErrDatabase         = Errno{Code: 10004, Message: "Database error"}
	ErrValidation       = Errno{Code: 10005, Message: "Request validation failed"}
)

// Escrow Errors (20100+)
var (
	ErrPaymentNotFound  = Errno{Code: 20101, Message: "Payment not found"}
	ErrInvalidState     = Errno{Code: 20102, Message: "Illegal state transition"}
	ErrEscrowNotHeld    = Errno{Code: 20103, Message: "Payment is not in escrow"}
	ErrDuplicatePayment = Errno{Code: 20104, Message: "An open payment already exists for this service request"}
)

// Distribution Errors (20200+)
var (
	ErrDistributionNotFound    = Errno{Code: 20201, Message: "Distribution not found"}
	ErrPercentageOverflow      = Errno{Code: 20202, Message: "Contributor percentages exceed 100"}
	ErrPercentageOutOfBand     = Errno{Code: 20203, Message: "Percentage outside template band"}
	ErrAlreadyProcessed        = Errno{Code: 20204, Message: "Record has already been processed"}
	ErrDistributionNotApproved = Errno{Code: 20205, Message: "Distribution pending contributor approval"}
	ErrTemplateInactive        = Errno{Code: 20206, Message: "Distribution template is deactivated"}
	ErrEscrowNotReleased       = Errno{Code: 20207, Message: "Escrow has not been released for this payment"}
)

// Wallet Errors (20300+)
var (
	ErrWalletNotFound         = Errno{Code: 20301, Message: "Wallet not found"}
	ErrInsufficientBalance    = Errno{Code: 20302, Message: "Insufficient available balance"}
	ErrWalletFrozen           = Errno{Code: 20303, Message: "Wallet is frozen pending manual review"}
	ErrReconciliationMismatch = Errno{Code: 20304, Message: "Ledger fold does not match wallet balance"}
	ErrUnknownEntryType       = Errno{Code: 20305, Message: "Unknown wallet transaction type"}
)

// Payout Errors (20400+)
var (
	ErrPayoutNotFound     = Errno{Code: 20401, Message: "Payout request not found"}
	ErrSettlementTimeout  = Errno{Code: 20402, Message: "Settlement rail timed out"}
	ErrSettlementRejected = Errno{Code: 20403, Message: "Settlement rail rejected the instruction"}
	ErrPayoutBelowMinimum = Errno{Code: 20404, Message: "Payout amount below configured minimum"}
)
