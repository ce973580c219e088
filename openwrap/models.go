package openwrap

// Gender is the one-letter user gender code sent on the wire.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// LocationSource says where a user location came from, encoded per the
// OpenRTB geo type table.
type LocationSource int

const (
	LocationSourceGPS LocationSource = iota + 1
	LocationSourceIPAddress
	LocationSourceUser
)

// Value returns the wire encoding of the location source.
func (s LocationSource) Value() int { return int(s) }

// Location carries user coordinates and their provenance. Attach one to a
// UserInfo to have lat/lon/type sent with the ad request.
type Location struct {
	Latitude  float64
	Longitude float64
	Source    LocationSource
}

// UserInfo holds demographic hints used for more relevant ads. All fields
// are optional; each is serialized only when set. Externally owned: the
// Configuration keeps a reference, not a copy.
type UserInfo struct {
	BirthYear int
	Gender    Gender
	Country   string
	City      string
	Metro     string
	Zip       string
	Location  *Location
}

// AppInfo describes the host application: store listing, bundle, domain and
// IAB categories (comma separated). Paid is tri-state; leave it nil to omit
// the parameter.
type AppInfo struct {
	Name       string
	Bundle     string
	Domain     string
	StoreURL   string
	Categories string
	Paid       *bool
}
