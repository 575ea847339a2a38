package reasoncodes

type ReasonCode string

const (
	ErrMalformedPayload           ReasonCode = "MalformedPayload"
	ErrInvalidRequestShape        ReasonCode = "InvalidRequestShape"
	ErrAttestationWindowViolation ReasonCode = "AttestationWindowViolation"
	ErrInvalidSignature           ReasonCode = "InvalidSignature"
	ErrUserMismatch               ReasonCode = "UserMismatch"
	ErrAttestationExpired         ReasonCode = "AttestationExpired"
	ErrNonceAlreadyUsed           ReasonCode = "NonceAlreadyUsed"
	ErrDaySequenceRejected        ReasonCode = "DaySequenceRejected"
	ErrLedger                     ReasonCode = "LedgerError"
)
