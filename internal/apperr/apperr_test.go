package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds_SurviveWrapping(t *testing.T) {
	base := errors.New("connection reset")

	v := fmt.Errorf("handler: %w", NewValidation("bad plan"))
	l := fmt.Errorf("service: %w", &LookupError{Message: "unknown user", Err: base})
	u := fmt.Errorf("storage: %w", &UploadFailure{Message: "upload failed", Err: base})

	assert.True(t, IsValidation(v))
	assert.False(t, IsValidation(l))

	assert.True(t, IsLookup(l))
	assert.ErrorIs(t, l, base)
	assert.Contains(t, l.Error(), "connection reset")

	assert.True(t, IsUploadFailure(u))
	assert.ErrorIs(t, u, base)
	assert.NotContains(t, u.Error(), "connection reset")
}
