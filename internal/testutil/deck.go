package testutil

import "github.com/vk/protocheck/internal/model"

// Plate places a 96-well 300 µL plate with the given declared volumes.
func Plate(name, slot string, volumes map[string]float64) *model.Instance {
	return &model.Instance{
		Name:            name,
		Type:            "generic_96_wellplate_300ul",
		Slot:            slot,
		InitialVolumeUL: volumes,
	}
}

// TipRack places a full 96-tip 300 µL rack.
func TipRack(name, slot string) *model.Instance {
	return &model.Instance{Name: name, Type: "tiprack_96_300ul", Slot: slot}
}

// Deck assembles placements into a deck keyed by instance name.
func Deck(instances ...*model.Instance) model.Deck {
	deck := make(model.Deck, len(instances))
	for _, inst := range instances {
		deck[inst.Name] = inst
	}
	return deck
}
