package state

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/catalog"
	"github.com/vk/protocheck/internal/model"
)

// Fact vocabulary. Element-level facts live on a labware element or a
// pipette channel; resource-level facts use an empty Element.
const (
	FactTipPresent  = "tip_present"
	FactVolume      = "volume"
	FactTipCapacity = "tip_capacity"
	FactOccupied    = "occupied"
	FactLidClosed   = "lid_closed"
	FactSealed      = "sealed"
	FactLocked      = "locked"
	FactShaking     = "shaking"
	FactTemperature = "temperature"
	FactSlot        = "slot"
	FactHomed       = "homed"
)

// Pseudo-resources for machine state that is not labware.
const (
	// ResourceHead is the pipetting head; elements are channel indices.
	ResourceHead = "pipette_head"
	// ResourceDeck is the deck itself; elements are slot names and the
	// only fact is occupancy.
	ResourceDeck = "deck"
)

// AmbientTemperatureC is the assumed temperature of every device in
// degrees Celsius before any thermal operation, and the temperature a
// deactivated device drifts back toward.
const AmbientTemperatureC = 22

// Seed builds the Initializer for one analysis run from the deck layout
// and the shape catalog. Every referenced labware type must resolve; a
// miss here is a setup error, not a finding.
func Seed(cat catalog.Catalog, deck model.Deck) (Initializer, error) {
	shapes := make(map[string]catalog.Shape, len(deck))
	occupied := make(map[string]bool, len(deck))
	for name, inst := range deck {
		shape, err := cat.LookupShape(inst.Type)
		if err != nil {
			return nil, fmt.Errorf("deck instance %q: %w", name, err)
		}
		shapes[name] = shape
		if inst.Slot != "" {
			occupied[inst.Slot] = true
		}
	}

	return func(k Key) *Fact {
		switch k.Resource {
		case ResourceHead:
			switch k.Fact {
			case FactTipPresent:
				return NewFlag(False)
			case FactVolume, FactTipCapacity:
				return NewNumber(cty.Zero)
			}
			return nil
		case ResourceDeck:
			if k.Fact == FactOccupied {
				if occupied[k.Element] {
					return NewFlag(True)
				}
				return NewFlag(False)
			}
			return nil
		}

		inst, ok := deck[k.Resource]
		if !ok {
			return nil
		}
		shape := shapes[k.Resource]
		switch k.Fact {
		case FactTipPresent:
			// Tip racks start fully populated.
			if shape.Kind == model.KindTipRack {
				return NewFlag(True)
			}
			return NewFlag(False)
		case FactVolume:
			if v, declared := inst.InitialVolumeUL[k.Element]; declared {
				return NewNumber(ctyFloat(v))
			}
			// Undeclared wells hold anything between empty and full.
			return NewInterval(cty.Zero, ctyFloat(shape.ElementCapacityUL))
		case FactLidClosed, FactSealed, FactLocked, FactShaking:
			return NewFlag(False)
		case FactTemperature:
			return NewNumber(cty.NumberIntVal(AmbientTemperatureC))
		case FactSlot:
			if inst.Slot != "" {
				return NewString(inst.Slot)
			}
			return nil
		}
		return nil
	}, nil
}

func ctyFloat(v float64) cty.Value {
	return cty.NumberFloatVal(v)
}
