package push

import "errors"

var (
	errUnauthorized = errors.New("push rejected: authentication failed")
	errPushStatus   = errors.New("push returned non-200 status")
)
