package coordinator

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step an error originated from.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageConfig  Stage = "config"
	StageBuild   Stage = "build"
	StagePublish Stage = "publish"
	StagePersist Stage = "persist"
)

// Sentinel categories, one per stage, so callers can classify failures with
// errors.Is without string matching.
var (
	ErrFetch       = errors.New("fetch failed")
	ErrConfig      = errors.New("config synthesis failed")
	ErrBuild       = errors.New("build failed")
	ErrPublish     = errors.New("publish failed")
	ErrPersistence = errors.New("persistence failed")
)

var stageCategories = map[Stage]error{
	StageFetch:   ErrFetch,
	StageConfig:  ErrConfig,
	StageBuild:   ErrBuild,
	StagePublish: ErrPublish,
	StagePersist: ErrPersistence,
}

// StageError wraps a stage failure so the run body can be caught once at the
// top and translated into a failed job record with a readable message.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

// Unwrap exposes both the underlying error and the stage's sentinel
// category to errors.Is / errors.As.
func (e *StageError) Unwrap() []error {
	if cat, ok := stageCategories[e.Stage]; ok {
		return []error{e.Err, cat}
	}
	return []error{e.Err}
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
