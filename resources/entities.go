package resources

import "time"

type Driver struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	LicenseNumber string    `json:"licenseNumber"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

func (d Driver) GetID() string { return d.ID }

type Vehicle struct {
	ID          string `json:"id"`
	PlateNumber string `json:"plateNumber"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        int    `json:"year,omitempty"`
	Color       string `json:"color,omitempty"`
	Type        string `json:"vehicleType,omitempty"`
	OwnerID     string `json:"ownerId,omitempty"`
	Status      string `json:"status"`
}

func (v Vehicle) GetID() string { return v.ID }

type Owner struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NationalID string `json:"nationalId,omitempty"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
}

func (o Owner) GetID() string { return o.ID }

type Inspector struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BadgeNumber string `json:"badgeNumber"`
	Station     string `json:"station,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Active      bool   `json:"isActive"`
}

func (i Inspector) GetID() string { return i.ID }

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Active   bool   `json:"isActive"`
}

func (u User) GetID() string { return u.ID }

type Violation struct {
	ID          string    `json:"id"`
	VehicleID   string    `json:"vehicleId"`
	DriverID    string    `json:"driverId,omitempty"`
	InspectorID string    `json:"inspectorId,omitempty"`
	Type        string    `json:"violationType"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Fine        float64   `json:"fineAmount"`
	Status      string    `json:"status"`
	IssuedAt    time.Time `json:"issuedAt"`
}

func (v Violation) GetID() string { return v.ID }

// ChecklistItem is one line of an inspection checklist.
type ChecklistItem struct {
	Item   string `json:"item"`
	Passed bool   `json:"passed"`
	Notes  string `json:"notes,omitempty"`
}

type InspectionRecord struct {
	ID           string          `json:"id"`
	VehicleID    string          `json:"vehicleId"`
	PlateNumber  string          `json:"plateNumber,omitempty"`
	DriverID     string          `json:"driverId,omitempty"`
	DriverName   string          `json:"driverName,omitempty"`
	InspectorID  string          `json:"inspectorId"`
	Inspector    string          `json:"inspectorName,omitempty"`
	Location     string          `json:"location,omitempty"`
	Result       string          `json:"result"`
	InspectedAt  time.Time       `json:"inspectedAt"`
	Checklist    []ChecklistItem `json:"checklist,omitempty"`
	ViolationIDs []string        `json:"violationIds,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

func (r InspectionRecord) GetID() string { return r.ID }

// InspectionStats is the dashboard summary. It has no list endpoint.
type InspectionStats struct {
	Total            int64            `json:"totalInspections"`
	Passed           int64            `json:"passed"`
	Failed           int64            `json:"failed"`
	Pending          int64            `json:"pending"`
	ViolationsIssued int64            `json:"violationsIssued"`
	ByStation        map[string]int64 `json:"byStation,omitempty"`
}
