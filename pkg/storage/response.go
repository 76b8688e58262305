package storage

import (
	"fmt"
	"net/http"
)

type ErrorKind uint8

const (
	NOT_FOUND ErrorKind = iota
	RATE_LIMITED
	SERVER_ERROR
	CONNECTION_ERROR
	OTHER
)

func (k ErrorKind) String() string {
	switch k {
	case NOT_FOUND:
		return "NotFound"
	case RATE_LIMITED:
		return "RateLimited"
	case SERVER_ERROR:
		return "ServerError"
	case CONNECTION_ERROR:
		return "ConnectionError"
	default:
		return "Other"
	}
}

// ErrorKindFromStatus. kind of a non 2xx http status.
func ErrorKindFromStatus(status int) ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return NOT_FOUND
	case status == http.StatusTooManyRequests:
		return RATE_LIMITED
	case status >= 500 && status < 600:
		return SERVER_ERROR
	default:
		return OTHER
	}
}

type ResponseError struct {
	Kind    ErrorKind
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable. transient failures that may succeed on a later attempt.
func (e *ResponseError) Retryable() bool {
	return e.Kind == RATE_LIMITED || e.Kind == SERVER_ERROR || e.Kind == CONNECTION_ERROR
}

// Response. outcome of a tile request: tile bytes, an error, or no content for a tile without data.
type Response struct {
	Data      []byte
	Err       *ResponseError
	NoContent bool
}

func Success(data []byte) Response {
	if len(data) == 0 {
		return Response{NoContent: true}
	}
	return Response{Data: data}
}

func Failure(kind ErrorKind, format string, a ...interface{}) Response {
	return Response{Err: &ResponseError{Kind: kind, Message: fmt.Sprintf(format, a...)}}
}

func (r Response) IsEmpty() bool {
	return r.NoContent || (r.Err == nil && len(r.Data) == 0)
}

func (r Response) IsError() bool {
	return r.Err != nil
}
