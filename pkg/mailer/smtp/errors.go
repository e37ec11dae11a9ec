package smtp

import "errors"

var (
	ErrMissingHost        = errors.New("smtp: host is required")
	ErrMissingCredentials = errors.New("smtp: SMTP_USER and SMTP_PASSWORD are required")
	ErrInvalidTLSPolicy   = errors.New("smtp: invalid TLS policy")
	ErrBuildMessage       = errors.New("smtp: failed to build message")
	ErrDial               = errors.New("smtp: failed to create client")
)
