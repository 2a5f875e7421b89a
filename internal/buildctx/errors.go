package buildctx

import "errors"

var (
	ErrStage     = errors.New("build context staging failed")
	ErrPattern   = errors.New("invalid exclude pattern")
	ErrNotStaged = errors.New("path not in build context")
)
