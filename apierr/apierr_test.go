package apierr

import (
	"context"
	"errors"
	"net/http"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"network", Network(errors.New("dial tcp: refused"), "request failed"), KindNetwork},
		{"validation", Validation(http.StatusUnprocessableEntity, "invalid", FieldError{Field: "email", Message: "invalid"}), KindValidation},
		{"general", General(http.StatusInternalServerError, "boom"), KindGeneral},
		{"plain", errors.New("plain"), KindGeneral},
		{"validation without fields", Validation(http.StatusBadRequest, "invalid"), KindGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestFieldErrorsAreDistinctFromGeneralMessage(t *testing.T) {
	verr := Validation(http.StatusBadRequest, "Validation failed",
		FieldError{Field: "email", Message: "invalid", Value: "x@"},
	)
	gerr := General(http.StatusConflict, "plate already registered")

	fields := FieldErrors(verr)
	require.Len(t, fields, 1)
	assert.Equal(t, "email", fields[0].Field)
	assert.Equal(t, "invalid", fields[0].Message)
	assert.Equal(t, map[string]string{"email": "invalid"}, FieldMessages(verr))

	assert.Nil(t, FieldErrors(gerr))
	assert.Equal(t, "plate already registered", Message(gerr))
	assert.Equal(t, http.StatusConflict, Status(gerr))
}

func TestGeneral_DefaultsMessageFromStatus(t *testing.T) {
	err := General(http.StatusNotFound, "")
	assert.Equal(t, "Not Found", Message(err))
}

func TestFromValidation(t *testing.T) {
	type form struct {
		Name  string `json:"name"`
		Plate string `json:"plate"`
	}
	f := form{}
	verr := validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Plate, validation.Required),
	)
	require.Error(t, verr)

	err := FromValidation(verr, "invalid form")
	assert.True(t, IsValidation(err))

	fields := FieldErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Field)
	assert.Equal(t, "plate", fields[1].Field)

	assert.NoError(t, FromValidation(nil, "unused"))
}

func TestEnsure(t *testing.T) {
	classified := General(http.StatusBadRequest, "bad")
	assert.True(t, Ensure(classified, "wrapped") == error(classified))

	assert.True(t, IsNetwork(Ensure(context.DeadlineExceeded, "timed out")))
	assert.Equal(t, KindGeneral, KindOf(Ensure(errors.New("decode"), "decode failed")))
	assert.NoError(t, Ensure(nil, "unused"))
}
