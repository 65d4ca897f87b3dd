package errorx

type Code int

const (
	// Common codes
	BadRequest     Code = 100001
	NotFound       Code = 100004
	AlreadyExists  Code = 100006
	Internal       Code = 100007
	Unavailable    Code = 100008
	NotImplemented Code = 100009

	// Lockup validation codes
	InvalidTimelock     Code = 200001
	InvalidTokenLocked  Code = 200002
	InsufficientAmount  Code = 200003
	InvalidClaimAddress Code = 200004

	// Lifecycle codes
	OnchainHTLCTimedOut Code = 300001
	TransactionFailed   Code = 300002
)
