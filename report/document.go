// Package report assembles the printable inspection report.
//
// It produces the data a PDF renderer lays out: a title, an ordered list of
// sections and a file name. Rendering is left to the caller.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/goliatone/go-resource-query/apierr"
	"github.com/goliatone/go-resource-query/resources"
)

// Document is one printable report.
type Document struct {
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Filename    string    `json:"filename"`
	GeneratedAt time.Time `json:"generatedAt"`
	Sections    []Section `json:"sections"`
}

// Section is a titled block. It carries fields, a table, free text, or a mix.
type Section struct {
	Heading string  `json:"heading"`
	Fields  []Field `json:"fields,omitempty"`
	Table   *Table  `json:"table,omitempty"`
	Text    string  `json:"text,omitempty"`
}

// Field is a label and its value.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Table is a header row and data rows of the same width.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Footer  string     `json:"footer,omitempty"`
}

// Section finds a section by heading.
func (d Document) Section(heading string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Heading == heading {
			return s, true
		}
	}
	return Section{}, false
}

// Value returns the value of label, or "".
func (s Section) Value(label string) string {
	for _, f := range s.Fields {
		if f.Label == label {
			return f.Value
		}
	}
	return ""
}

// Section headings.
const (
	SectionInspection = "Inspection"
	SectionVehicle    = "Vehicle"
	SectionDriver     = "Driver"
	SectionChecklist  = "Checklist"
	SectionViolations = "Violations"
	SectionNotes      = "Notes"
)

// Input is everything a report can show. Only Record is required; Vehicle and
// Driver fill in details the record only references.
type Input struct {
	Record     resources.InspectionRecord
	Vehicle    *resources.Vehicle
	Driver     *resources.Driver
	Violations []resources.Violation
}

// Validate checks that the record can be reported on.
func (in Input) Validate() error {
	return validation.ValidateStruct(&in.Record,
		validation.Field(&in.Record.ID, validation.Required),
		validation.Field(&in.Record.InspectedAt, validation.Required),
	)
}

// Options tune the formatting of a report.
type Options struct {
	Location     *time.Location
	Currency     string
	Language     language.Tag
	Now          func() time.Time
	FilePrefix   string
	DateLayout   string
	MissingValue string
}

// DefaultOptions formats dates in UTC and fines in KES.
func DefaultOptions() Options {
	return Options{
		Location:     time.UTC,
		Currency:     "KES",
		Language:     language.English,
		Now:          time.Now,
		FilePrefix:   "inspection",
		DateLayout:   "02 Jan 2006 15:04",
		MissingValue: "-",
	}
}

// Build assembles the report of in.
func Build(in Input, opts Options) (Document, error) {
	if err := in.Validate(); err != nil {
		return Document{}, apierr.FromValidation(err, "inspection record cannot be reported")
	}
	b := newBuilder(opts)
	r := in.Record

	doc := Document{
		Title:       "Vehicle Inspection Report",
		Subtitle:    b.plate(in) + " · " + b.date(r.InspectedAt),
		Filename:    b.filename(in),
		GeneratedAt: b.opts.Now().In(b.opts.Location),
	}

	doc.Sections = append(doc.Sections, Section{
		Heading: SectionInspection,
		Fields: []Field{
			{Label: "Reference", Value: r.ID},
			{Label: "Date", Value: b.date(r.InspectedAt)},
			{Label: "Location", Value: b.value(r.Location)},
			{Label: "Inspector", Value: b.value(firstNonEmpty(r.Inspector, r.InspectorID))},
			{Label: "Result", Value: b.title(r.Result)},
		},
	})

	vehicle := []Field{{Label: "Plate number", Value: b.plate(in)}}
	if v := in.Vehicle; v != nil {
		vehicle = append(vehicle,
			Field{Label: "Make and model", Value: b.value(strings.TrimSpace(v.Make + " " + v.Model))},
			Field{Label: "Year", Value: b.year(v.Year)},
			Field{Label: "Color", Value: b.value(v.Color)},
			Field{Label: "Type", Value: b.title(v.Type)},
		)
	}
	doc.Sections = append(doc.Sections, Section{Heading: SectionVehicle, Fields: vehicle})

	if in.Driver != nil || r.DriverName != "" || r.DriverID != "" {
		driver := []Field{{Label: "Name", Value: b.value(driverName(in))}}
		if d := in.Driver; d != nil {
			driver = append(driver,
				Field{Label: "License number", Value: b.value(d.LicenseNumber)},
				Field{Label: "Phone", Value: b.value(d.Phone)},
			)
		}
		doc.Sections = append(doc.Sections, Section{Heading: SectionDriver, Fields: driver})
	}

	doc.Sections = append(doc.Sections, b.checklist(r.Checklist))

	if len(in.Violations) > 0 {
		doc.Sections = append(doc.Sections, b.violations(in.Violations))
	}
	if notes := strings.TrimSpace(r.Notes); notes != "" {
		doc.Sections = append(doc.Sections, Section{Heading: SectionNotes, Text: notes})
	}
	return doc, nil
}

type builder struct {
	opts    Options
	printer *message.Printer
	caser   cases.Caser
}

func newBuilder(opts Options) builder {
	def := DefaultOptions()
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.Currency == "" {
		opts.Currency = def.Currency
	}
	if opts.Language == language.Und {
		opts.Language = def.Language
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if opts.FilePrefix == "" {
		opts.FilePrefix = def.FilePrefix
	}
	if opts.DateLayout == "" {
		opts.DateLayout = def.DateLayout
	}
	if opts.MissingValue == "" {
		opts.MissingValue = def.MissingValue
	}
	return builder{
		opts:    opts,
		printer: message.NewPrinter(opts.Language),
		caser:   cases.Title(opts.Language),
	}
}

func (b builder) checklist(items []resources.ChecklistItem) Section {
	table := &Table{Columns: []string{"Item", "Result", "Notes"}, Rows: [][]string{}}
	passed := 0
	for _, it := range items {
		result := "Fail"
		if it.Passed {
			result = "Pass"
			passed++
		}
		table.Rows = append(table.Rows, []string{it.Item, result, b.value(it.Notes)})
	}
	if len(items) == 0 {
		return Section{Heading: SectionChecklist, Text: "No checklist was recorded."}
	}
	table.Footer = b.printer.Sprintf("%d of %d checks passed", passed, len(items))
	return Section{Heading: SectionChecklist, Table: table}
}

func (b builder) violations(list []resources.Violation) Section {
	table := &Table{Columns: []string{"Violation", "Fine", "Status", "Issued"}, Rows: [][]string{}}
	var total float64
	for _, v := range list {
		total += v.Fine
		table.Rows = append(table.Rows, []string{
			b.title(v.Type),
			b.money(v.Fine),
			b.title(v.Status),
			b.date(v.IssuedAt),
		})
	}
	table.Footer = "Total fines " + b.money(total)
	return Section{Heading: SectionViolations, Table: table}
}

func (b builder) money(amount float64) string {
	return b.printer.Sprintf("%s %.2f", b.opts.Currency, amount)
}

func (b builder) date(t time.Time) string {
	if t.IsZero() {
		return b.opts.MissingValue
	}
	return t.In(b.opts.Location).Format(b.opts.DateLayout)
}

func (b builder) year(y int) string {
	if y <= 0 {
		return b.opts.MissingValue
	}
	return fmt.Sprint(y)
}

func (b builder) title(s string) string {
	s = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	if s == "" {
		return b.opts.MissingValue
	}
	return b.caser.String(s)
}

func (b builder) value(s string) string {
	if strings.TrimSpace(s) == "" {
		return b.opts.MissingValue
	}
	return s
}

func (b builder) plate(in Input) string {
	if in.Vehicle != nil && in.Vehicle.PlateNumber != "" {
		return in.Vehicle.PlateNumber
	}
	return b.value(firstNonEmpty(in.Record.PlateNumber, in.Record.VehicleID))
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9]+`)

// filename is prefix-plate-yyyymmdd.pdf with everything but letters and
// digits collapsed to a dash.
func (b builder) filename(in Input) string {
	subject := firstNonEmpty(in.Record.PlateNumber, in.Record.ID)
	if in.Vehicle != nil && in.Vehicle.PlateNumber != "" {
		subject = in.Vehicle.PlateNumber
	}
	subject = strings.Trim(unsafeFilename.ReplaceAllString(subject, "-"), "-")
	day := in.Record.InspectedAt.In(b.opts.Location).Format("20060102")
	return fmt.Sprintf("%s-%s-%s.pdf", b.opts.FilePrefix, subject, day)
}

func driverName(in Input) string {
	if d := in.Driver; d != nil {
		if name := strings.TrimSpace(d.FirstName + " " + d.LastName); name != "" {
			return name
		}
	}
	return firstNonEmpty(in.Record.DriverName, in.Record.DriverID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
