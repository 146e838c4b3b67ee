package errs

// 通用错误码
const (
	ServerInternalError = 500
	ArgsError           = 1001
)

// 会话 / 网关错误码
const (
	TokenMissingError = 1501
	TokenInvalidError = 1502
	NotMemberError    = 1601
	BadFrameError     = 1701
	StoreError        = 1801
	ShuttingDownError = 1901
)

var (
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")

	ErrTokenMissing = NewCodeError(TokenMissingError, "TokenMissingError")
	ErrTokenInvalid = NewCodeError(TokenInvalidError, "TokenInvalidError")
	ErrNotMember    = NewCodeError(NotMemberError, "NotMemberError")
	ErrBadFrame     = NewCodeError(BadFrameError, "BadFrameError")
	ErrStore        = NewCodeError(StoreError, "StoreError")
	ErrShuttingDown = NewCodeError(ShuttingDownError, "ShuttingDownError")
)
