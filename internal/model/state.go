package model

// Explicit transition tables for the payment and payout state machines.
// Distributions track progress with boolean flags instead. The payout
// service routes its status checks and conflict diagnostics through these
// tables; payment transitions are enforced by conditional updates whose
// WHERE clauses mirror the table.

var paymentTransitions = map[string][]string{
	PaymentPending:  {PaymentHeld, PaymentFailed},
	PaymentHeld:     {PaymentReleased, PaymentRefunded},
	PaymentReleased: {},
	PaymentRefunded: {},
	PaymentFailed:   {},
}

var payoutTransitions = map[string][]string{
	PayoutRequested:  {PayoutApproved, PayoutRejected},
	PayoutApproved:   {PayoutProcessing, PayoutRejected},
	PayoutProcessing: {PayoutCompleted, PayoutFailed},
	PayoutCompleted:  {},
	PayoutFailed:     {},
	PayoutRejected:   {},
}

func canTransition(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

func isTerminal(table map[string][]string, status string) bool {
	next, ok := table[status]
	return ok && len(next) == 0
}

// PaymentCanTransition reports whether a payment may move from -> to
func PaymentCanTransition(from, to string) bool {
	return canTransition(paymentTransitions, from, to)
}

// PaymentIsTerminal reports whether status is terminal for payments
func PaymentIsTerminal(status string) bool {
	return isTerminal(paymentTransitions, status)
}

// PayoutCanTransition reports whether a payout may move from -> to
func PayoutCanTransition(from, to string) bool {
	return canTransition(payoutTransitions, from, to)
}

// PayoutIsTerminal reports whether status is terminal for payouts
func PayoutIsTerminal(status string) bool {
	return isTerminal(payoutTransitions, status)
}

// CreditTypes and DebitTypes define the sign convention for ledger entries.
// Adjustments are signed by their own amount and belong to neither set.
var creditTypes = map[string]bool{
	TxPaymentReceived:      true,
	TxDistributionReceived: true,
	TxBonusReceived:        true,
	TxWithdrawalReversed:   true,
}

var debitTypes = map[string]bool{
	TxCommissionDeducted:  true,
	TxDistributionPaid:    true,
	TxWithdrawalRequested: true,
	TxWithdrawalCompleted: true,
	TxRefundIssued:        true,
}

// IsCreditType reports whether t credits the wallet
func IsCreditType(t string) bool { return creditTypes[t] }

// IsDebitType reports whether t debits the wallet
func IsDebitType(t string) bool { return debitTypes[t] }

// KnownTxType reports whether t is a recognized ledger entry type
func KnownTxType(t string) bool {
	return creditTypes[t] || debitTypes[t] || t == TxAdjustment
}
