package report

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-resource-query/apierr"
	"github.com/goliatone/go-resource-query/resources"
)

// Getter reads one entity. resources.REST and resourcecache.CachedResource implement it.
type Getter[T any] interface {
	Get(ctx context.Context, id string) (T, error)
}

// MaxParallel bounds the violation reads of one report.
const MaxParallel = 4

// Assembler loads an inspection record with what it references and builds its report.
type Assembler struct {
	Records    Getter[resources.InspectionRecord]
	Vehicles   Getter[resources.Vehicle]
	Drivers    Getter[resources.Driver]
	Violations Getter[resources.Violation]
	Options    Options
	Log        *zap.Logger
}

// Assemble builds the report of record id. The record must load. A referenced
// vehicle, driver or violation that is gone is left out; any other failure to
// load one fails the report.
func (a *Assembler) Assemble(ctx context.Context, id string) (Document, error) {
	log := a.Log
	if log == nil {
		log = zap.NewNop()
	}

	record, err := a.Records.Get(ctx, id)
	if err != nil {
		return Document{}, apierr.Ensure(err, "load inspection record "+id)
	}
	in := Input{Record: record}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallel)

	if a.Vehicles != nil && record.VehicleID != "" {
		g.Go(func() error {
			v, err := optional(a.Vehicles.Get(gctx, record.VehicleID))
			if v != nil {
				in.Vehicle = v
			}
			return err
		})
	}
	if a.Drivers != nil && record.DriverID != "" {
		g.Go(func() error {
			d, err := optional(a.Drivers.Get(gctx, record.DriverID))
			if d != nil {
				in.Driver = d
			}
			return err
		})
	}

	var violations []*resources.Violation
	if a.Violations != nil {
		violations = make([]*resources.Violation, len(record.ViolationIDs))
		for i, vid := range record.ViolationIDs {
			g.Go(func() error {
				v, err := optional(a.Violations.Get(gctx, vid))
				violations[i] = v
				return err
			})
		}
	}

	if err := g.Wait(); err != nil {
		log.Warn("inspection report references failed to load", zap.String("record", id), zap.Error(err))
		return Document{}, apierr.Ensure(err, "load inspection report references")
	}
	for _, v := range violations {
		if v != nil {
			in.Violations = append(in.Violations, *v)
		}
	}

	doc, err := Build(in, a.Options)
	if err != nil {
		return Document{}, err
	}
	log.Debug("inspection report assembled",
		zap.String("record", id),
		zap.String("filename", doc.Filename),
		zap.Int("sections", len(doc.Sections)),
	)
	return doc, nil
}

// optional turns a not found answer into no value and no error.
func optional[T any](v T, err error) (*T, error) {
	if err != nil {
		if apierr.Status(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}
