package coordinator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageErrorClassification(t *testing.T) {
	underlying := errors.New("reference not found")
	err := stageErr(StageFetch, underlying)

	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, underlying)
	assert.NotErrorIs(t, err, ErrBuild)
	assert.Equal(t, "fetch stage: reference not found", err.Error())

	var stage *StageError
	assert.ErrorAs(t, error(err), &stage)
	assert.Equal(t, StageFetch, stage.Stage)
}
