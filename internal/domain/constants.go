package domain

// Idempotency key status constants. A key only ever moves forward:
// reserved -> processing -> completed | failed.
const (
	KeyStatusReserved   = "reserved"
	KeyStatusProcessing = "processing"
	KeyStatusCompleted  = "completed"
	KeyStatusFailed     = "failed"
)

// Operation tags recorded on issued keys.
const (
	OperationPayment = "payment"
)

// TerminalKeyStatus reports whether status permits no further transition.
func TerminalKeyStatus(status string) bool {
	return status == KeyStatusCompleted || status == KeyStatusFailed
}
