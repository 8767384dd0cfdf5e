package listview

// OverlayKind names the dialog a view has open.
type OverlayKind int

const (
	OverlayNone OverlayKind = iota
	OverlayCreate
	OverlayEdit
	OverlayDelete
	OverlayDetail
	OverlayExport
)

func (k OverlayKind) String() string {
	switch k {
	case OverlayNone:
		return "none"
	case OverlayCreate:
		return "create"
	case OverlayEdit:
		return "edit"
	case OverlayDelete:
		return "delete"
	case OverlayDetail:
		return "detail"
	case OverlayExport:
		return "export"
	default:
		return "unknown"
	}
}

// Overlay is the single open dialog of a view. ID is the entity it acts on and
// is empty for create and export.
type Overlay struct {
	Kind OverlayKind
	ID   string
}

// Open reports whether any dialog is open.
func (o Overlay) Open() bool {
	return o.Kind != OverlayNone
}
