// Package units resolves store unit text to the canonical quantity units the
// inventory service is provisioned with.
package units

import (
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
)

// Unit is a canonical quantity unit. The string value is the quantity unit
// name in the inventory service.
type Unit string

const (
	Each       Unit = "ea"
	Pack       Unit = "pk"
	Gram       Unit = "g"
	Kilogram   Unit = "kg"
	Millilitre Unit = "mL"
	Litre      Unit = "L"
)

// All contains every canonical unit. Each one must exist in the inventory
// service before an import runs.
var All = []Unit{Each, Pack, Gram, Kilogram, Millilitre, Litre}

// fold normalises unit text for case-insensitive comparison.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Lookup matches raw unit text against the canonical set, ignoring case.
func Lookup(raw string) (Unit, bool) {
	f := fold(raw)
	for _, u := range All {
		if fold(string(u)) == f {
			return u, true
		}
	}
	return "", false
}

// Resolve maps raw unit text to a canonical unit. Unknown text resolves to
// Each.
func Resolve(raw string) Unit {
	if u, ok := Lookup(raw); ok {
		return u
	}
	// TODO: confirm whether exotic units (e.g. "dozen", "bunch") should fail
	// the import instead of being stocked as each.
	log.Debug().Str("unit", raw).Msg("Unrecognised unit, falling back to each")
	return Each
}

// IsPhysical reports whether the unit measures weight or volume.
func (u Unit) IsPhysical() bool {
	switch u {
	case Gram, Kilogram, Millilitre, Litre:
		return true
	}
	return false
}

// Larger returns the unit that is 1000 times u, if there is one.
func (u Unit) Larger() (Unit, bool) {
	switch u {
	case Gram:
		return Kilogram, true
	case Millilitre:
		return Litre, true
	}
	return "", false
}

func (u Unit) String() string {
	return string(u)
}
