package catalog

import "github.com/vk/protocheck/internal/model"

// Builtin returns the compiled-in labware set: the common shapes tests and
// small protocols rely on without needing a catalog file.
func Builtin() Static {
	return Static{
		"corning_96_wellplate_360ul": {
			Kind: model.KindPlate, Rows: 8, Columns: 12, ElementCapacityUL: 360,
		},
		"generic_96_wellplate_300ul": {
			Kind: model.KindPlate, Rows: 8, Columns: 12, ElementCapacityUL: 300,
		},
		"generic_384_wellplate_100ul": {
			Kind: model.KindPlate, Rows: 16, Columns: 24, ElementCapacityUL: 100,
		},
		"tiprack_96_300ul": {
			Kind: model.KindTipRack, Rows: 8, Columns: 12, ElementCapacityUL: 300,
		},
		"tiprack_96_1000ul": {
			Kind: model.KindTipRack, Rows: 8, Columns: 12, ElementCapacityUL: 1000,
		},
		"tuberack_24_1500ul": {
			Kind: model.KindTubeRack, Rows: 4, Columns: 6, ElementCapacityUL: 1500,
		},
		"reservoir_12_15ml": {
			Kind: model.KindReservoir, Count: 12, ElementCapacityUL: 15000,
		},
		"trash": {
			Kind: model.KindTrash, Count: 1,
		},
	}
}
