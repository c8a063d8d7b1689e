package bridge

import "fmt"

// AbiVersion 当前桥接 ABI 版本，动态库必须返回相同的值
const AbiVersion uint32 = 1

// ErrorCode 错误码
type ErrorCode int32

const (
	ErrOK              ErrorCode = 0
	ErrUnknown         ErrorCode = 1
	ErrInvalidArgument ErrorCode = 2
	ErrAbiMismatch     ErrorCode = 3
	ErrConversion      ErrorCode = 4
	ErrTypeMismatch    ErrorCode = 5
	ErrBoundary        ErrorCode = 6
	ErrArrowImport     ErrorCode = 7
	ErrArrowExport     ErrorCode = 8
	ErrExecution       ErrorCode = 9
	ErrUnsupported     ErrorCode = 10
	ErrOom             ErrorCode = 11
)

var errorCodeNames = map[ErrorCode]string{
	ErrOK:              "ok",
	ErrUnknown:         "unknown",
	ErrInvalidArgument: "invalid argument",
	ErrAbiMismatch:     "abi mismatch",
	ErrConversion:      "conversion",
	ErrTypeMismatch:    "type mismatch",
	ErrBoundary:        "boundary",
	ErrArrowImport:     "arrow import",
	ErrArrowExport:     "arrow export",
	ErrExecution:       "execution",
	ErrUnsupported:     "unsupported",
	ErrOom:             "out of memory",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int32(c))
}

// Error 是跨越边界的唯一错误类别：一个错误码加上可读的消息
type Error struct {
	Code    ErrorCode
	Message string

	cause error
}

// NewError wraps cause into a boundary error. cause stays reachable through
// errors.Is / errors.As.
func NewError(code ErrorCode, cause error) *Error {
	e := &Error{Code: code, cause: cause}
	if cause != nil {
		e.Message = cause.Error()
	}
	return e
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }
