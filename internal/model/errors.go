package model

import (
	"errors"
	"fmt"
)

// Failure classes of one job's enrichment chain. Components wrap these so the
// orchestrator can tell which stage stopped the chain.
var (
	ErrNetwork   = errors.New("network error")
	ErrInference = errors.New("inference error")
	ErrParse     = errors.New("parse error")
)

// Stage names the step of the chain a result stopped at.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageInference Stage = "inference"
	StageParse     Stage = "parse"
	StagePersist   Stage = "persist"
	StageDone      Stage = "done"
)

// StageOf classifies err by the sentinel it wraps. Unclassified errors are
// attributed to fallback.
func StageOf(err error, fallback Stage) Stage {
	switch {
	case err == nil:
		return StageDone
	case errors.Is(err, ErrNetwork):
		return StageFetch
	case errors.Is(err, ErrInference):
		return StageInference
	case errors.Is(err, ErrParse):
		return StageParse
	default:
		return fallback
	}
}

// HTTPError wraps a non-success HTTP status.
type HTTPError struct {
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
