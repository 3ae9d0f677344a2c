package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	err := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestWithDetailsDoesNotMutateBase(t *testing.T) {
	detailed := WithDetails(ErrPartialAction, []string{"step"})
	assert.NotNil(t, detailed.Details)
	assert.Nil(t, ErrPartialAction.Details)
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := Wrap(errors.New("dial tcp"), ErrAdvisorLoad.Code, ErrAdvisorLoad.Status, "failed to load buses")
	assert.True(t, Is(wrapped, ErrAdvisorLoad))
	assert.False(t, Is(wrapped, ErrNotFound))
	assert.True(t, wrapped.Retryable())
	assert.False(t, ErrValidation.Retryable())
}
