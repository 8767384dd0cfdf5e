package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-resource-query/apierr"
	"github.com/goliatone/go-resource-query/cache"
	"github.com/goliatone/go-resource-query/listquery"
	"github.com/goliatone/go-resource-query/pkg/testsupport"
	"github.com/goliatone/go-resource-query/transport"
)

func newAPI(t *testing.T) (*testsupport.FakeAPI, *transport.Client) {
	t.Helper()
	fake := testsupport.NewFakeAPI(t)
	client, err := transport.New(fake.URL)
	require.NoError(t, err)
	return fake, client
}

func TestREST_ListWrapped(t *testing.T) {
	fake, api := newAPI(t)
	fake.Handle(http.MethodGet, "/drivers", testsupport.JSON(testsupport.Fixture(t, "drivers_page1.json")))

	src := NewREST[Driver](api, Drivers)
	q := listquery.New(2).WithSearch("am").WithSort("lastName", listquery.SortDesc)

	page, err := src.List(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, page.Items, 2)
	assert.Equal(t, "Otieno", page.Items[0].LastName)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNextPage)

	sent := fake.Last().Query
	assert.Equal(t, []string{"am"}, sent["search"])
	assert.Equal(t, []string{"DESC"}, sent["sortOrder"])
	assert.Equal(t, []string{"2"}, sent["limit"])
}

func TestREST_ListRecordsWithSummary(t *testing.T) {
	fake, api := newAPI(t)
	fake.Handle(http.MethodGet, "/violations", testsupport.JSON(testsupport.Fixture(t, "violations_page1.json")))

	src := NewREST[Violation](api, Violations)
	q := listquery.New(2).WithFilter("status", "unpaid").WithFilter("color", "red").WithSort("issuedAt", listquery.SortDesc)

	page, err := src.List(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, page.Items, 2)
	assert.Equal(t, 5000.0, page.Items[0].Fine)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, listquery.Summary{"total": 3, "paid": 1, "unpaid": 2}, page.Summary)

	sent := fake.Last().Query
	assert.Equal(t, []string{"desc"}, sent["sortOrder"])
	assert.Equal(t, []string{"unpaid"}, sent["status"])
	assert.NotContains(t, sent, "color")
}

func TestREST_ListEmpty(t *testing.T) {
	fake, api := newAPI(t)
	fake.Handle(http.MethodGet, "/owners", testsupport.JSON(testsupport.Fixture(t, "empty_page.json")))

	page, err := NewREST[Owner](api, Owners).List(context.Background(), listquery.New(10))
	require.NoError(t, err)
	assert.True(t, page.Empty())
	assert.False(t, page.Pagination.HasNextPage)
}

func TestREST_ListShortSearchIsNotSent(t *testing.T) {
	fake, api := newAPI(t)
	fake.Handle(http.MethodGet, "/users", testsupport.JSON(testsupport.WrappedPage(t, []User{}, 1, 10, 0)))

	_, err := NewREST[User](api, Users).List(context.Background(), listquery.New(10).WithSearch("j"))
	require.NoError(t, err)
	assert.NotContains(t, fake.Last().Query, "search")
}

func TestREST_ListInvalidQueryNeverHitsNetwork(t *testing.T) {
	fake, api := newAPI(t)

	_, err := NewREST[Driver](api, Drivers).List(context.Background(), listquery.ListQuery{Page: 0, Limit: 500})

	require.Error(t, err)
	assert.True(t, apierr.IsValidation(err))
	fields := apierr.FieldMessages(err)
	assert.Contains(t, fields, "page")
	assert.Contains(t, fields, "limit")
	assert.Equal(t, 0, fake.Hits(http.MethodGet, "/drivers"))
}

func TestREST_DetailOnlyHasNoList(t *testing.T) {
	_, api := newAPI(t)
	_, err := NewREST[InspectionStats](api, Stats).List(context.Background(), listquery.New(10))
	require.Error(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, apierr.Status(err))
}

func TestREST_GetAndStats(t *testing.T) {
	fake, api := newAPI(t)
	fake.Handle(http.MethodGet, "/inspection-records/ir-9", testsupport.JSON(testsupport.Fixture(t, "inspection_record.json")))
	fake.Handle(http.MethodGet, "/inspection-records/stats", testsupport.JSON(testsupport.Item(t, InspectionStats{Total: 120, Passed: 100, Failed: 20})))

	record, err := NewREST[InspectionRecord](api, InspectionRecords).Get(context.Background(), "ir-9")
	require.NoError(t, err)
	assert.Equal(t, "failed", record.Result)
	assert.Len(t, record.Checklist, 3)
	assert.Equal(t, time.Date(2026, 9, 3, 7, 45, 0, 0, time.UTC), record.InspectedAt)

	stats, err := NewREST[InspectionStats](api, Stats).Get(context.Background(), "")
	require.NoError(t, err)
	assert.EqualValues(t, 120, stats.Total)
}

func TestREST_Mutations(t *testing.T) {
	fake, api := newAPI(t)
	fake.Handle(http.MethodPost, "/vehicles", testsupport.Response{
		Status: http.StatusCreated,
		Body:   testsupport.Item(t, Vehicle{ID: "veh-9", PlateNumber: "KDB 555X"}),
	})
	fake.Handle(http.MethodPut, "/vehicles/veh-9", testsupport.JSON(testsupport.Item(t, Vehicle{ID: "veh-9", PlateNumber: "KDB 555Y"})))
	fake.Handle(http.MethodDelete, "/vehicles/veh-9", testsupport.JSON([]byte(`{"success":true,"message":"deleted"}`)))

	src := NewREST[Vehicle](api, Vehicles)
	ctx := context.Background()

	created, err := src.Create(ctx, Vehicle{PlateNumber: "KDB 555X"})
	require.NoError(t, err)
	assert.Equal(t, "veh-9", created.ID)

	var sent Vehicle
	require.NoError(t, json.Unmarshal(fake.Last().Body, &sent))
	assert.Equal(t, "KDB 555X", sent.PlateNumber)

	updated, err := src.Update(ctx, created.ID, Vehicle{PlateNumber: "KDB 555Y"})
	require.NoError(t, err)
	assert.Equal(t, "KDB 555Y", updated.PlateNumber)

	require.NoError(t, src.Delete(ctx, created.ID))
	assert.Equal(t, 1, fake.Hits(http.MethodDelete, "/vehicles/veh-9"))
}

func TestREST_ValidationFailure(t *testing.T) {
	fake, api := newAPI(t)
	fake.Handle(http.MethodPost, "/drivers", testsupport.Response{
		Status: http.StatusBadRequest,
		Body:   testsupport.Fixture(t, "validation_error.json"),
	})

	_, err := NewREST[Driver](api, Drivers).Create(context.Background(), Driver{})

	require.Error(t, err)
	assert.True(t, apierr.IsValidation(err))
	assert.Equal(t, "License number is required", apierr.FieldMessages(err)["licenseNumber"])
}

func TestDefinitions(t *testing.T) {
	assert.Len(t, All(), 8)

	d, ok := Lookup(NameViolations)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, d.StaleAfter)
	assert.Equal(t, transport.EnvelopeRecords, d.Envelope)

	_, ok = Lookup("tickets")
	assert.False(t, ok)

	assert.Equal(t, time.Hour, d.WithStaleAfter(time.Hour).StaleAfter)
	assert.Equal(t, 30*time.Second, d.WithStaleAfter(0).StaleAfter)
	assert.Equal(t, 30*time.Second, d.CacheConfig(cache.DefaultConfig()).StaleAfter)
	assert.Equal(t, "/violations/a%2Fb", d.ItemPath("a/b"))
}
