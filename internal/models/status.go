package models

// LocationStatus is the closed set of crowd-status values a spot can carry.
// Values are grouped into three axes; the spot's CategoryClass decides which
// axis applies.
type LocationStatus string

const (
	// Ambience axis (study spots, libraries).
	StatusQuiet     LocationStatus = "quiet"
	StatusJustRight LocationStatus = "justRight"
	StatusNoisy     LocationStatus = "noisy"

	// Queue axis (canteens, fast food, terminals).
	StatusNoLine    LocationStatus = "noLine"
	StatusShortLine LocationStatus = "shortLine"
	StatusLongLine  LocationStatus = "longLine"

	// Availability axis (parking, laundry, facilities).
	StatusAvailable LocationStatus = "available"
	StatusInUse     LocationStatus = "inUse"
)

// Legacy aliases kept for older clients.
const (
	StatusModerate = StatusShortLine
	StatusOccupied = StatusInUse
)

// Title returns the user-facing label for the status.
func (s LocationStatus) Title() string {
	switch s {
	case StatusQuiet:
		return "Quiet"
	case StatusJustRight:
		return "Moderate"
	case StatusNoisy:
		return "Busy"
	case StatusNoLine:
		return "No Queue"
	case StatusShortLine:
		return "Short Wait"
	case StatusLongLine:
		return "Long Wait"
	case StatusAvailable:
		return "Available"
	case StatusInUse:
		return "Occupied"
	}
	return string(s)
}

// IconName returns the icon hint delivered with status notifications.
func (s LocationStatus) IconName() string {
	switch s {
	case StatusQuiet:
		return "waveform.path.ecg"
	case StatusJustRight:
		return "person.2.fill"
	case StatusNoisy:
		return "speaker.wave.3.fill"
	case StatusNoLine:
		return "figure.walk"
	case StatusShortLine:
		return "hourglass"
	case StatusLongLine:
		return "person.3.sequence.fill"
	case StatusAvailable:
		return "checkmark.circle.fill"
	case StatusInUse:
		return "xmark.circle.fill"
	}
	return "questionmark.circle"
}

// Severity buckets statuses for display: "good", "warn" or "bad".
func (s LocationStatus) Severity() string {
	switch s {
	case StatusQuiet, StatusNoLine, StatusAvailable:
		return "good"
	case StatusJustRight, StatusShortLine:
		return "warn"
	case StatusNoisy, StatusLongLine, StatusInUse:
		return "bad"
	}
	return "unknown"
}

// Valid reports whether s is one of the closed status set.
func (s LocationStatus) Valid() bool {
	switch s {
	case StatusQuiet, StatusJustRight, StatusNoisy,
		StatusNoLine, StatusShortLine, StatusLongLine,
		StatusAvailable, StatusInUse:
		return true
	}
	return false
}

// CategoryClass is the status axis a spot category resolves to. It is
// resolved once when the spot is created and stored on the document, so a
// later rename of the free-text category cannot silently switch axes.
type CategoryClass string

const (
	ClassAmbience     CategoryClass = "ambience"
	ClassQueue        CategoryClass = "queue"
	ClassAvailability CategoryClass = "availability"
)

var queueCategories = map[string]bool{
	"Cafe":        true,
	"Fast Food":   true,
	"Canteen":     true,
	"Terminal":    true,
	"Marketplace": true,
}

var availabilityCategories = map[string]bool{
	"Laundry":  true,
	"Parking":  true,
	"Facility": true,
}

// ClassifyCategory maps a free-text category tag to its status axis.
// Unknown categories fall back to the ambience axis.
func ClassifyCategory(category string) CategoryClass {
	if queueCategories[category] {
		return ClassQueue
	}
	if availabilityCategories[category] {
		return ClassAvailability
	}
	return ClassAmbience
}

// DefaultStatus is the status a new spot starts with on this axis.
func (c CategoryClass) DefaultStatus() LocationStatus {
	switch c {
	case ClassQueue:
		return StatusNoLine
	case ClassAvailability:
		return StatusAvailable
	default:
		return StatusQuiet
	}
}

// Allows reports whether the status belongs to the class's axis.
func (c CategoryClass) Allows(s LocationStatus) bool {
	switch c {
	case ClassQueue:
		return s == StatusNoLine || s == StatusShortLine || s == StatusLongLine
	case ClassAvailability:
		return s == StatusAvailable || s == StatusInUse
	case ClassAmbience:
		return s == StatusQuiet || s == StatusJustRight || s == StatusNoisy
	}
	return false
}
