package model

// Instance is one labware item placed on the deck: an instance name bound
// to a catalog type, a deck slot, and optional declared starting volumes
// per element ID. Static; the engine mutates only abstract state derived
// from it.
type Instance struct {
	Name string
	Type string // catalog type key
	Slot string
	// InitialVolumeUL maps element IDs ("A1") to declared starting
	// volumes. Elements absent from the map start with an unknown volume
	// bounded by the element capacity.
	InitialVolumeUL map[string]float64
}

// Deck maps instance names to their placements.
type Deck map[string]*Instance
