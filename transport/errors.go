package transport

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-resource-query/apierr"
)

type errorBody struct {
	Success *bool        `json:"success"`
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Errors  []fieldError `json:"errors"`
}

type fieldError struct {
	Field   string `json:"field"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// DecodeError returns the error a response stands for, or nil for a success.
//
// A non-2xx status with an errors array is a validation error, anything else
// is a general error carrying the backend message. A 2xx body that reports
// success false is a general error as well.
func DecodeError(status int, body []byte) error {
	ok := status >= 200 && status < 300
	if ok {
		if gjson.ValidBytes(body) {
			if s := gjson.GetBytes(body, "success"); s.Exists() && s.Type == gjson.False {
				return apierr.General(status, gjson.GetBytes(body, "message").String())
			}
		}
		return nil
	}

	var eb errorBody
	if len(body) == 0 || json.Unmarshal(body, &eb) != nil {
		return apierr.General(status, "")
	}

	message := eb.Message
	if message == "" {
		message = eb.Error
	}

	if len(eb.Errors) > 0 {
		fields := make([]apierr.FieldError, 0, len(eb.Errors))
		for _, fe := range eb.Errors {
			name := fe.Field
			if name == "" {
				name = fe.Path
			}
			fields = append(fields, apierr.FieldError{
				Field:   name,
				Message: fe.Message,
				Value:   fe.Value,
			})
		}
		return apierr.Validation(status, message, fields...)
	}
	return apierr.General(status, message)
}
