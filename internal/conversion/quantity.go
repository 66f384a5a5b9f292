package conversion

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/finn-wa/grocy-trolley-sub000/internal/units"
)

var (
	magnitudeRe = regexp.MustCompile(`[0-9.]+`)
	unitTokenRe = regexp.MustCompile(`[a-zA-Z]+`)
)

// Quantity is a parsed display quantity such as "400g" or "6pk".
type Quantity struct {
	Magnitude float64
	// HasMagnitude is false when the text held no usable positive number.
	HasMagnitude bool
	Unit         units.Unit
	// UnitText is the raw unit token, empty when the text had none.
	UnitText string
}

// ParseDisplayQuantity reads the first run of digits and decimal points as
// the magnitude and the first run of letters as the unit.
func ParseDisplayQuantity(text string) Quantity {
	q := Quantity{}
	if m := magnitudeRe.FindString(text); m != "" {
		if f, err := strconv.ParseFloat(strings.Trim(m, "."), 64); err == nil && f > 0 {
			q.Magnitude = f
			q.HasMagnitude = true
		}
	}
	q.UnitText = unitTokenRe.FindString(text)
	q.Unit = units.Resolve(q.UnitText)
	return q
}

// String formats the quantity for product names, e.g. "400g" or "6pk".
func (q Quantity) String() string {
	if !q.HasMagnitude {
		return string(q.Unit)
	}
	return strconv.FormatFloat(q.Magnitude, 'f', -1, 64) + string(q.Unit)
}
