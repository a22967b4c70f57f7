package solana

import "errors"

var (
	errCatchupFailed  = errors.New("catchup command failed")
	errCatchupTimeout = errors.New("catchup command timed out")
	errVersionFailed  = errors.New("version command failed")
	errHealthProbe    = errors.New("health probe failed")
)
