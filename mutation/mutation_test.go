package mutation

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-resource-query/apierr"
)

// mockInvalidator records every invalidation it receives
type mockInvalidator struct {
	mu      sync.Mutex
	calls   []string
	listErr error
}

func (m *mockInvalidator) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockInvalidator) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockInvalidator) Invalidate(ctx context.Context, resource string) error {
	m.record("all:" + resource)
	return nil
}

func (m *mockInvalidator) InvalidateLists(ctx context.Context, resource string) error {
	m.record("lists:" + resource)
	return m.listErr
}

func (m *mockInvalidator) InvalidateDetail(ctx context.Context, resource, id string) error {
	m.record("detail:" + resource + ":" + id)
	return nil
}

type driver struct {
	ID   string
	Name string
}

func TestDo_InvalidatesOnSuccess(t *testing.T) {
	inv := &mockInvalidator{}

	got, err := Do(context.Background(), inv, Scope{Op: OpUpdate, Resource: "drivers", IDs: []string{"7", "7"}},
		func(ctx context.Context) (driver, error) {
			return driver{ID: "7", Name: "Ana"}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, []string{"lists:drivers", "detail:drivers:7"}, inv.getCalls())
}

func TestDo_FailureKeepsCache(t *testing.T) {
	inv := &mockInvalidator{}

	_, err := Do(context.Background(), inv, Scope{Op: OpCreate, Resource: "drivers"},
		func(ctx context.Context) (driver, error) {
			return driver{}, apierr.Validation(http.StatusUnprocessableEntity, "invalid driver",
				apierr.FieldError{Field: "licenseNumber", Message: "is required"},
				apierr.FieldError{Field: "phone", Message: "must be a valid phone number"},
			)
		})

	require.Error(t, err)
	assert.Empty(t, inv.getCalls())
	assert.True(t, apierr.IsValidation(err))
	assert.Equal(t, map[string]string{
		"licenseNumber": "is required",
		"phone":         "must be a valid phone number",
	}, apierr.FieldMessages(err))
}

func TestDo_GeneralErrorHasSingleMessage(t *testing.T) {
	_, err := Do(context.Background(), &mockInvalidator{}, Scope{Op: OpDelete, Resource: "vehicles"},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, apierr.General(http.StatusConflict, "vehicle has open violations")
		})

	require.Error(t, err)
	assert.Equal(t, apierr.KindGeneral, apierr.KindOf(err))
	assert.Nil(t, apierr.FieldErrors(err))
	assert.Equal(t, "vehicle has open violations", apierr.Message(err))
	assert.Equal(t, http.StatusConflict, apierr.Status(err))
}

func TestDo_UnclassifiedErrorIsWrapped(t *testing.T) {
	_, err := Do(context.Background(), &mockInvalidator{}, Scope{Op: OpCreate, Resource: "owners"},
		func(ctx context.Context) (int, error) {
			return 0, errors.New("boom")
		})

	require.Error(t, err)
	assert.Equal(t, apierr.KindGeneral, apierr.KindOf(err))
}

func TestDo_InvalidationFailureDoesNotFailMutation(t *testing.T) {
	inv := &mockInvalidator{listErr: errors.New("cache closed")}

	got, err := Do(context.Background(), inv, Scope{Op: OpCreate, Resource: "owners"},
		func(ctx context.Context) (int, error) { return 3, nil })

	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestDo_RelatedResources(t *testing.T) {
	inv := &mockInvalidator{}
	ctx := WithRelated(context.Background(), "inspection-records", "violations")

	_, err := Do(ctx, inv, Scope{Op: OpCreate, Resource: "violations", Related: []string{"inspection-stats"}},
		func(ctx context.Context) (int, error) { return 1, nil },
		WithRelatedResources("inspection-records"),
	)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"lists:violations",
		"all:inspection-records",
		"all:inspection-stats",
	}, inv.getCalls())
}

func TestDo_NilInvalidator(t *testing.T) {
	got, err := Do(context.Background(), nil, Scope{Op: OpCreate, Resource: "users"},
		func(ctx context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestController_Mutate(t *testing.T) {
	inv := &mockInvalidator{}
	var sent []driver
	update := New(inv, OpUpdate, "drivers",
		func(ctx context.Context, d driver) (driver, error) {
			sent = append(sent, d)
			d.Name = d.Name + " (saved)"
			return d, nil
		},
		func(payload driver, result driver) []string { return []string{result.ID} },
	)

	got, err := update.Mutate(context.Background(), driver{ID: "12", Name: "Ben"})

	require.NoError(t, err)
	assert.Equal(t, "Ben (saved)", got.Name)
	assert.Len(t, sent, 1)
	assert.Equal(t, "drivers", update.Resource())
	assert.Equal(t, []string{"lists:drivers", "detail:drivers:12"}, inv.getCalls())
}

func TestController_CreateWithoutIDs(t *testing.T) {
	inv := &mockInvalidator{}
	create := New(inv, OpCreate, "inspectors",
		func(ctx context.Context, name string) (string, error) { return "id-" + name, nil },
		nil,
	)

	_, err := create.Mutate(context.Background(), "zoe")
	require.NoError(t, err)
	assert.Equal(t, []string{"lists:inspectors"}, inv.getCalls())
}

func TestWithRelated(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithRelated(ctx))

	ctx = WithRelated(ctx, "a", "b", "a", "")
	ctx = WithRelated(ctx, "b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, RelatedFromContext(ctx))

	assert.Equal(t, []string{"x"}, RelatedFromContext(WithRelated(nil, "x")))
	assert.Nil(t, RelatedFromContext(context.Background()))
}
