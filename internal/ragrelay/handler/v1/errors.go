package v1

import (
	"net/http"

	"github.com/kiosk404/ragrelay/pkg/errorx"
)

// Ragrelay handler error codes.
// Code format: 1XXYYZ
//   - 1:  module prefix (ragrelay handler)
//   - XX: resource group (10=common, 11=chat, 12=tool)
//   - YY: sequential error number
//   - Z:  reserved (0)

const (
	// Common request errors (110xxx).
	ErrBind       = 110010
	ErrValidation = 110020

	// Chat errors (111xxx).
	ErrEmptyQuery   = 111010
	ErrChatNotFound = 111020
	ErrChatRun      = 111030
	ErrChatList     = 111040
	ErrChatDelete   = 111050
	ErrChatGet      = 111060
)

func init() {
	// Common.
	errorx.MustRegister(newCoder(ErrBind, http.StatusBadRequest, "Request body binding failed"))
	errorx.MustRegister(newCoder(ErrValidation, http.StatusBadRequest, "Request validation failed"))

	// Chat.
	errorx.MustRegister(newCoder(ErrEmptyQuery, http.StatusBadRequest, "No user question found in messages"))
	errorx.MustRegister(newCoder(ErrChatNotFound, http.StatusNotFound, "Chat not found"))
	errorx.MustRegister(newCoder(ErrChatRun, http.StatusInternalServerError, "Chat turn failed"))
	errorx.MustRegister(newCoder(ErrChatList, http.StatusInternalServerError, "Failed to list chats"))
	errorx.MustRegister(newCoder(ErrChatDelete, http.StatusInternalServerError, "Failed to delete chat"))
	errorx.MustRegister(newCoder(ErrChatGet, http.StatusInternalServerError, "Failed to get chat"))
}

type coder struct {
	code int
	http int
	msg  string
}

func newCoder(code, httpStatus int, msg string) *coder {
	return &coder{code: code, http: httpStatus, msg: msg}
}

func (c *coder) Code() int         { return c.code }
func (c *coder) HTTPStatus() int   { return c.http }
func (c *coder) String() string    { return c.msg }
func (c *coder) Reference() string { return "" }
