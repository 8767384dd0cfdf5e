package listquery

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxLimit caps the page size a view may request.
const MaxLimit = 100

var fieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// Validate checks the query before it is sent anywhere.
func (q ListQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Page, validation.Required, validation.Min(1)),
		validation.Field(&q.Limit, validation.Required, validation.Min(1), validation.Max(MaxLimit)),
		validation.Field(&q.SortBy, validation.Match(fieldName)),
		validation.Field(&q.SortOrder, validation.In(SortAsc, SortDesc)),
		validation.Field(&q.Filters, validation.By(validFilterKeys)),
	)
}

func validFilterKeys(value any) error {
	filters, _ := value.(map[string]string)
	for key := range filters {
		if !fieldName.MatchString(key) {
			return validation.NewError("validation_filter_key", "filter key "+key+" is not a valid field name")
		}
	}
	return nil
}
