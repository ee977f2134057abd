package errs

// Relay error codes. Grouped loosely: 10xx protocol, 11xx presence storage,
// 12xx outbound publishing.
const (
	CodeBadFrame       = 1001
	CodeUnknownEvent   = 1002
	CodeBadPayload     = 1003
	CodeStoreFailure   = 1101
	CodePublishFailure = 1201
)

var (
	ErrBadFrame       = NewCodeError(CodeBadFrame, "malformed frame")
	ErrUnknownEvent   = NewCodeError(CodeUnknownEvent, "no handler for event")
	ErrBadPayload     = NewCodeError(CodeBadPayload, "bad event payload")
	ErrStoreFailure   = NewCodeError(CodeStoreFailure, "presence store failure")
	ErrPublishFailure = NewCodeError(CodePublishFailure, "presence publish failure")
)
