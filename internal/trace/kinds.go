package trace

import "github.com/vk/protocheck/internal/model"

// childKinds is the closed mapping from a resource's declared kind to the
// kind of child element it is subdivided into. Element kinds are inferred
// from this table only, never from type-name matching.
var childKinds = map[model.ResourceKind]model.ElementKind{
	model.KindPlate:     model.ElementWell,
	model.KindTipRack:   model.ElementTipSpot,
	model.KindTubeRack:  model.ElementTube,
	model.KindReservoir: model.ElementWell,
	model.KindTrash:     model.ElementSlot,
	model.KindCarrier:   model.ElementSlot,
}

// ChildKind returns the element kind for a resource kind, and whether the
// resource kind is known to the table.
func ChildKind(kind model.ResourceKind) (model.ElementKind, bool) {
	k, ok := childKinds[kind]
	return k, ok
}
