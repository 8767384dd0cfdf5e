// Package resources describes the list resources of the inspection API and
// serves them over the transport client.
//
// Each Definition carries the wire conventions of one endpoint: its path, the
// envelope its list responses use, how it wants sortOrder cased and which
// filters it understands. Nothing outside this package needs to know that
// violations answer with {records, pagination, summary} while drivers wrap
// their page in {success, data}.
package resources

import (
	"net/url"
	"slices"
	"time"

	"github.com/goliatone/go-resource-query/cache"
	"github.com/goliatone/go-resource-query/listquery"
	"github.com/goliatone/go-resource-query/transport"
)

// Resource names.
const (
	NameDrivers           = "drivers"
	NameVehicles          = "vehicles"
	NameOwners            = "owners"
	NameInspectors        = "inspectors"
	NameUsers             = "users"
	NameViolations        = "violations"
	NameInspectionRecords = "inspection-records"
	NameInspectionStats   = "inspection-stats"
)

// Definition is the wire contract of one resource.
type Definition struct {
	Name       string
	Path       string
	StaleAfter time.Duration
	SortCasing listquery.SortCasing
	Envelope   transport.Envelope
	// Filters lists the filter keys the endpoint accepts. Empty accepts any.
	Filters []string
	// Related resources are invalidated with this one after a mutation.
	Related []string
	// DetailOnly resources have no list endpoint.
	DetailOnly bool
}

var (
	Drivers = Definition{
		Name:       NameDrivers,
		Path:       "/drivers",
		StaleAfter: 5 * time.Minute,
		SortCasing: listquery.SortUpper,
		Envelope:   transport.EnvelopeWrapped,
		Filters:    []string{"status", "licenseClass"},
	}
	Vehicles = Definition{
		Name:       NameVehicles,
		Path:       "/vehicles",
		StaleAfter: 5 * time.Minute,
		SortCasing: listquery.SortUpper,
		Envelope:   transport.EnvelopeWrapped,
		Filters:    []string{"status", "vehicleType", "ownerId"},
	}
	Owners = Definition{
		Name:       NameOwners,
		Path:       "/owners",
		StaleAfter: 5 * time.Minute,
		SortCasing: listquery.SortLower,
		Envelope:   transport.EnvelopeWrapped,
		Related:    []string{NameVehicles},
	}
	Inspectors = Definition{
		Name:       NameInspectors,
		Path:       "/inspectors",
		StaleAfter: 10 * time.Minute,
		SortCasing: listquery.SortUpper,
		Envelope:   transport.EnvelopeWrapped,
		Filters:    []string{"station", "isActive"},
	}
	Users = Definition{
		Name:       NameUsers,
		Path:       "/users",
		StaleAfter: 2 * time.Minute,
		SortCasing: listquery.SortLower,
		Envelope:   transport.EnvelopeWrapped,
		Filters:    []string{"role", "isActive"},
	}
	Violations = Definition{
		Name:       NameViolations,
		Path:       "/violations",
		StaleAfter: 30 * time.Second,
		SortCasing: listquery.SortLower,
		Envelope:   transport.EnvelopeRecords,
		Filters:    []string{"status", "violationType", "vehicleId", "driverId", "from", "to"},
		Related:    []string{NameInspectionRecords, NameInspectionStats},
	}
	InspectionRecords = Definition{
		Name:       NameInspectionRecords,
		Path:       "/inspection-records",
		StaleAfter: time.Minute,
		SortCasing: listquery.SortUpper,
		Envelope:   transport.EnvelopeRecords,
		Filters:    []string{"result", "inspectorId", "vehicleId", "from", "to"},
		Related:    []string{NameInspectionStats},
	}
	Stats = Definition{
		Name:       NameInspectionStats,
		Path:       "/inspection-records/stats",
		StaleAfter: 15 * time.Minute,
		DetailOnly: true,
	}
)

// All returns every known definition.
func All() []Definition {
	return []Definition{Drivers, Vehicles, Owners, Inspectors, Users, Violations, InspectionRecords, Stats}
}

// Lookup finds a definition by name.
func Lookup(name string) (Definition, bool) {
	for _, d := range All() {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// WithStaleAfter returns a copy with another stale window.
func (d Definition) WithStaleAfter(ttl time.Duration) Definition {
	if ttl > 0 {
		d.StaleAfter = ttl
	}
	return d
}

// CacheConfig derives the cache namespace config of the resource from base.
func (d Definition) CacheConfig(base cache.Config) cache.Config {
	return base.WithStaleAfter(d.StaleAfter)
}

// Encode turns q into request parameters using the resource's conventions.
// Filters the endpoint does not accept are dropped.
func (d Definition) Encode(q listquery.ListQuery) url.Values {
	if len(d.Filters) > 0 && len(q.Filters) > 0 {
		q = q.Clone()
		for key := range q.Filters {
			if !slices.Contains(d.Filters, key) {
				delete(q.Filters, key)
			}
		}
	}
	return q.Values(listquery.EncodeOptions{
		SortCasing:      d.SortCasing,
		SearchMinLength: listquery.SearchMinLength,
	})
}

// ItemPath returns the path of one entity.
func (d Definition) ItemPath(id string) string {
	return d.Path + "/" + url.PathEscape(id)
}
