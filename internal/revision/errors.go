package revision

import "errors"

var (
	ErrResolve       = errors.New("revision resolution failed")
	ErrEmptyRevision = errors.New("empty revision")
	ErrUnknownSource = errors.New("unknown revision source")
)
