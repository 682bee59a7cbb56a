package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknownAsInternal(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestCloneKeepsCode(t *testing.T) {
	cloned := Clone(ErrConflict, "drop request already pending")
	assert.Equal(t, ErrConflict.Code, cloned.Code)
	assert.Equal(t, "drop request already pending", cloned.Message)
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestHasCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("row 2: %w", Clone(ErrValidation, "invalid date"))
	assert.True(t, HasCode(err, ErrValidation))
	assert.False(t, HasCode(err, ErrConflict))
	assert.False(t, HasCode(nil, ErrConflict))
}
