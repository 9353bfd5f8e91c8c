package errno

import "errors"

var (
	ErrClosed       = errors.New("knowledge base is closed")
	ErrEmptyQuery   = errors.New("query is empty")
	ErrEntityNotSet = errors.New("relationship refers to an unnamed entity")
)
