package errs

import (
	"fmt"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// CodeError carries a stable numeric code alongside the human message.
// Codes are part of the operational vocabulary (logs, dashboards), they are
// never sent back to relay clients.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("code=%d msg=%s", e.Code, e.Msg))
	if e.Detail != "" {
		sb.WriteString(" detail=")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
}

// WithDetail returns a copy with extra detail appended.
func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	if c.Detail == "" {
		c.Detail = detail
	} else {
		c.Detail += ", " + detail
	}
	return c
}

// Wrap attaches a stack trace to the error.
func (e *CodeError) Wrap() error {
	return pkgerr.WithStack(e)
}

// WrapMsg appends a message plus key/value detail and attaches a stack.
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	c := e.clone()
	if msg != "" || len(kv) > 0 {
		d := toString(msg, kv)
		if c.Detail == "" {
			c.Detail = d
		} else {
			c.Detail += ", " + d
		}
	}
	return pkgerr.WithStack(c)
}

// Is lets errors.Is match by code.
func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !pkgerr.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

func New(msg string) error {
	return pkgerr.New(msg)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerr.Wrap(err, msg)
}

func toString(msg string, kv []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		if i+1 < len(kv) {
			sb.WriteString(fmt.Sprintf("%v=%v", kv[i], kv[i+1]))
		} else {
			sb.WriteString(fmt.Sprintf("%v", kv[i]))
		}
	}
	return sb.String()
}
