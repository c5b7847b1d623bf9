package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/prepportal/internal/errors"
)

func TestIsKind_SeesThroughWrapping(t *testing.T) {
	base := errors.NewQuotaExceededError("portal.progress", 10, 5)
	wrapped := fmt.Errorf("save progress: %w", base)

	assert.True(t, errors.IsKind(wrapped, errors.ErrCodeQuotaExceeded))
	assert.False(t, errors.IsKind(wrapped, errors.ErrCodeShapeValidation))
	assert.False(t, errors.IsKind(errors.New("plain"), errors.ErrCodeQuotaExceeded))
}

func TestAppError_Message(t *testing.T) {
	cause := errors.New("connection refused")
	err := errors.NewRemoteUnavailableError("fetch progress", cause)

	assert.Equal(t, "REMOTE_UNAVAILABLE: remote fetch progress failed (connection refused)", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, 404, errors.NewNotFoundError("day", "standard-3").Status)
}
