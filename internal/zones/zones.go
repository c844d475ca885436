// Package zones holds the static court zone catalog.
package zones

// Type classifies the shot taken from a zone. The string values are the ones
// stored in backups and remote rows.
type Type string

const (
	FreeThrow  Type = "tl"
	MidRange   Type = "2p"
	ThreePoint Type = "3p"
)

// DefaultType is assigned to sessions whose zone id is not in the catalog.
const DefaultType = MidRange

// Types lists the shot types in display order.
var Types = []Type{FreeThrow, MidRange, ThreePoint}

var typeLabels = map[Type]string{
	FreeThrow:  "Free Throw",
	MidRange:   "2 Points",
	ThreePoint: "3 Points",
}

// Label returns the display name of a shot type.
func (t Type) Label() string {
	if l, ok := typeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Valid reports whether t is one of the known shot types.
func (t Type) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// ParseType accepts the wire value ("tl", "2p", "3p") or a long name.
func ParseType(s string) (Type, bool) {
	switch s {
	case "tl", "ft", "free_throw", "free-throw":
		return FreeThrow, true
	case "2p", "mid", "mid_range", "mid-range":
		return MidRange, true
	case "3p", "three", "three_point", "three-point":
		return ThreePoint, true
	}
	return "", false
}

type Zone struct {
	ID    string
	Label string
	Type  Type
}

var catalog = []Zone{
	{ID: "Triple_Izq", Label: "Three Left Wing", Type: ThreePoint},
	{ID: "Triple_Der", Label: "Three Right Wing", Type: ThreePoint},
	{ID: "Triple_Frontal", Label: "Three Top", Type: ThreePoint},
	{ID: "Triple_Esquina_Izq", Label: "Three Left Corner", Type: ThreePoint},
	{ID: "Triple_Esquina_Der", Label: "Three Right Corner", Type: ThreePoint},
	{ID: "Doble_Lateral_Izq", Label: "Left Baseline", Type: MidRange},
	{ID: "Doble_Lateral_Der", Label: "Right Baseline", Type: MidRange},
	{ID: "Doble_Ala_Izq", Label: "Left Elbow", Type: MidRange},
	{ID: "Doble_Ala_Der", Label: "Right Elbow", Type: MidRange},
	{ID: "Pintura_Baja", Label: "Low Paint", Type: MidRange},
	{ID: "Pintura_Alta", Label: "High Paint", Type: MidRange},
	{ID: "TiroLibre", Label: "Free Throw", Type: FreeThrow},
}

var byID = func() map[string]Zone {
	m := make(map[string]Zone, len(catalog))
	for _, z := range catalog {
		m[z.ID] = z
	}
	return m
}()

// All returns a copy of the catalog in display order.
func All() []Zone {
	out := make([]Zone, len(catalog))
	copy(out, catalog)
	return out
}

// Resolve looks up a zone by id.
func Resolve(id string) (Zone, bool) {
	z, ok := byID[id]
	return z, ok
}

// Snapshot returns the zone to copy into a new session. Unknown ids fall back
// to DefaultType with the raw id as label.
func Snapshot(id string) Zone {
	if z, ok := byID[id]; ok {
		return z
	}
	return Zone{ID: id, Label: id, Type: DefaultType}
}

// OfType returns the catalog zones with the given type.
func OfType(t Type) []Zone {
	var out []Zone
	for _, z := range catalog {
		if z.Type == t {
			out = append(out, z)
		}
	}
	return out
}
