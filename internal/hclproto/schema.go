package hclproto

import (
	"github.com/hashicorp/hcl/v2"
)

// labwareBlock is one `labware "name" { ... }` block inside `deck`. The
// volumes attribute is kept as an expression so a malformed map reports
// its own source range.
type labwareBlock struct {
	Name    string         `hcl:"name,label"`
	Type    string         `hcl:"type"`
	Slot    string         `hcl:"slot,optional"`
	Volumes hcl.Expression `hcl:"volumes,optional"`
}

// deckBlock collects the labware placements of a protocol file.
type deckBlock struct {
	Labware []*labwareBlock `hcl:"labware,block"`
}

// variableBlock is a top-level `variable "name" { ... }` block. A variable
// with a value is concrete; one without is a runtime placeholder, carrying
// min/max as a range refinement when declared.
type variableBlock struct {
	Name  string         `hcl:"name,label"`
	Type  string         `hcl:"type,optional"`
	Value hcl.Expression `hcl:"value,optional"`
	Min   *float64       `hcl:"min,optional"`
	Max   *float64       `hcl:"max,optional"`
}

// rootSchema lists the top-level blocks a protocol file may contain.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "deck"},
		{Type: "variable", LabelNames: []string{"name"}},
		{Type: "protocol"},
	},
}
