package contract

import (
	"fmt"
	"strconv"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/protocheck/internal/model"
	"github.com/vk/protocheck/internal/state"
)

// Builtin returns the registry of hardware operation contracts the engine
// models: single-channel and whole-head pipetting, tip handling, labware
// movement, temperature control, shaking, lids and seals, and plate
// reading.
func Builtin() *Registry {
	r := NewRegistry()
	registerTipOps(r)
	registerLiquidOps(r)
	registerMovementOps(r)
	registerThermalOps(r)
	registerShakerOps(r)
	registerLidOps(r)
	registerReaderOps(r)
	return r
}

// Canonical argument pairings shared by the pipetting family.
var (
	wellsSel  = Selection{ResourceArg: "resource", ElementsArg: "wells"}
	tipsSel   = Selection{ResourceArg: "resource", ElementsArg: "tips"}
	sourceSel = Selection{ResourceArg: "source", ElementsArg: "source_wells"}
	targetSel = Selection{ResourceArg: "target", ElementsArg: "target_wells"}
)

// --- fact keys ---

func wellVolume(ref model.ElementRef) state.Key {
	return state.Key{Resource: ref.Resource, Element: ref.ID, Fact: state.FactVolume}
}

func spotTip(ref model.ElementRef) state.Key {
	return state.Key{Resource: ref.Resource, Element: ref.ID, Fact: state.FactTipPresent}
}

func channel(i int, fact string) state.Key {
	return state.Key{Resource: state.ResourceHead, Element: strconv.Itoa(i), Fact: fact}
}

func slotOccupied(slot string) state.Key {
	return state.Key{Resource: state.ResourceDeck, Element: slot, Fact: state.FactOccupied}
}

func instFact(resource, fact string) state.Key {
	return state.Key{Resource: resource, Fact: fact}
}

// --- selection sources ---

type refSource func(e *Env) (*model.RefSet, error)

func fromSelection(sel Selection) refSource {
	return func(e *Env) (*model.RefSet, error) { return e.Selection(sel) }
}

func fromAll(resourceArg string) refSource {
	return func(e *Env) (*model.RefSet, error) { return e.All(resourceArg) }
}

// refsOf fetches a source's elements inside checks and effects, where
// resolution failures were already surfaced by Execute and yield an empty
// visit rather than a second error.
func refsOf(e *Env, src refSource) []model.ElementRef {
	set, err := src(e)
	if err != nil {
		return nil
	}
	return e.Elements(set)
}

// volume returns the bounds of the call's volume argument.
func volume(e *Env, arg string) (lo, hi cty.Value) {
	lo, hi, err := e.Number(arg)
	if err != nil {
		return cty.NilVal, cty.NilVal
	}
	return lo, hi
}

// --- shared preconditions ---

// preChannelsFree forbids picking up tips onto already-loaded channels.
func preChannelsFree(src refSource) Precondition {
	return Precondition{
		Kind:     model.FindingDoubleTipPickup,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			for i := range refsOf(e, src) {
				switch e.FlagIs(channel(i, state.FactTipPresent), state.False) {
				case Violated:
					return Violated, fmt.Sprintf("channel %d already carries a tip", i)
				case Unknown:
					return Unknown, ""
				}
			}
			return Sat, ""
		},
		// effects load the channels regardless: the tip is present after
		// the flagged pickup, so later calls check against reality
	}
}

// preSpotsHaveTips requires every addressed tip spot to hold a tip.
func preSpotsHaveTips(src refSource) Precondition {
	return Precondition{
		Kind:     model.FindingMissingTips,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			for _, ref := range refsOf(e, src) {
				switch e.FlagIs(spotTip(ref), state.True) {
				case Violated:
					return Violated, fmt.Sprintf("tip spot %s is empty", ref)
				case Unknown:
					return Unknown, ""
				}
			}
			return Sat, ""
		},
	}
}

// preTipsLoaded requires a tip on every channel the selection maps to.
func preTipsLoaded(src refSource) Precondition {
	return Precondition{
		Kind:     model.FindingMissingTips,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			for i := range refsOf(e, src) {
				switch e.FlagIs(channel(i, state.FactTipPresent), state.True) {
				case Violated:
					return Violated, fmt.Sprintf("channel %d has no tip loaded", i)
				case Unknown:
					return Unknown, ""
				}
			}
			return Sat, ""
		},
		Recover: func(e *Env) {
			for i := range refsOf(e, src) {
				e.SetFlag(channel(i, state.FactTipPresent), state.True)
			}
		},
	}
}

// prePlateOpen forbids pipetting into sealed or lidded labware.
func prePlateOpen(resourceArg string) Precondition {
	return Precondition{
		Kind:     model.FindingCollision,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			resource, err := e.String(resourceArg)
			if err != nil {
				return Sat, ""
			}
			switch e.FlagIs(instFact(resource, state.FactSealed), state.False) {
			case Violated:
				return Violated, fmt.Sprintf("%q is sealed", resource)
			case Unknown:
				return Unknown, ""
			}
			switch e.FlagIs(instFact(resource, state.FactLidClosed), state.False) {
			case Violated:
				return Violated, fmt.Sprintf("lid of %q is closed", resource)
			case Unknown:
				return Unknown, ""
			}
			return Sat, ""
		},
		Recover: func(e *Env) {
			if resource, err := e.String(resourceArg); err == nil {
				e.SetFlag(instFact(resource, state.FactSealed), state.False)
				e.SetFlag(instFact(resource, state.FactLidClosed), state.False)
			}
		},
	}
}

// preWellsHoldVolume requires each addressed well to hold the requested
// volume, scaled by a per-well multiplier (distribute draws n aliquots).
func preWellsHoldVolume(src refSource, volArg string, scale func(e *Env) int) Precondition {
	return Precondition{
		Kind:     model.FindingInsufficientVolume,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			lo, hi := volume(e, volArg)
			if scale != nil {
				n := cty.NumberIntVal(int64(scale(e)))
				if lo != cty.NilVal {
					lo = lo.Multiply(n)
				}
				if hi != cty.NilVal {
					hi = hi.Multiply(n)
				}
			}
			for _, ref := range refsOf(e, src) {
				switch e.AtLeast(wellVolume(ref), lo, hi) {
				case Violated:
					return Violated, fmt.Sprintf("well %s holds less than the requested volume", ref)
				case Unknown:
					return Unknown, ""
				}
			}
			return Sat, ""
		},
	}
}

// preTipsHoldVolume requires each mapped channel's tip to hold the volume
// about to be dispensed.
func preTipsHoldVolume(src refSource, volArg string) Precondition {
	return Precondition{
		Kind:     model.FindingInsufficientVolume,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			lo, hi := volume(e, volArg)
			for i := range refsOf(e, src) {
				switch e.AtLeast(channel(i, state.FactVolume), lo, hi) {
				case Violated:
					return Violated, fmt.Sprintf("tip on channel %d holds less than the requested volume", i)
				case Unknown:
					return Unknown, ""
				}
			}
			return Sat, ""
		},
	}
}

// preTipsFit requires headroom in each mapped channel's tip for the volume
// about to be aspirated.
func preTipsFit(src refSource, volArg string) Precondition {
	return Precondition{
		Kind:     model.FindingTipOverflow,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			lo, hi := volume(e, volArg)
			for i := range refsOf(e, src) {
				v := e.FitsWithinKey(channel(i, state.FactVolume), lo, hi, channel(i, state.FactTipCapacity))
				switch v {
				case Violated:
					return Violated, fmt.Sprintf("volume exceeds tip capacity on channel %d", i)
				case Unknown:
					return Unknown, ""
				}
			}
			return Sat, ""
		},
	}
}

// preWellsFit requires headroom in each addressed well.
func preWellsFit(src refSource, volArg string, scale func(e *Env) int) Precondition {
	return Precondition{
		Kind:     model.FindingWellOverflow,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			lo, hi := volume(e, volArg)
			if scale != nil {
				n := cty.NumberIntVal(int64(scale(e)))
				if lo != cty.NilVal {
					lo = lo.Multiply(n)
				}
				if hi != cty.NilVal {
					hi = hi.Multiply(n)
				}
			}
			for _, ref := range refsOf(e, src) {
				capacity := e.StaticCapacity(ref.Resource)
				switch e.FitsWithin(wellVolume(ref), lo, hi, capacity) {
				case Violated:
					return Violated, fmt.Sprintf("dispense would overflow well %s", ref)
				case Unknown:
					return Unknown, ""
				}
			}
			return Sat, ""
		},
	}
}

// preSlotFree forbids placing labware onto an occupied slot.
func preSlotFree(slotArg string) Precondition {
	return Precondition{
		Kind:     model.FindingCollision,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			slot, err := e.String(slotArg)
			if err != nil {
				return Sat, ""
			}
			switch e.FlagIs(slotOccupied(slot), state.False) {
			case Violated:
				return Violated, fmt.Sprintf("deck slot %q is already occupied", slot)
			case Unknown:
				return Unknown, ""
			}
			return Sat, ""
		},
	}
}

// preFlag is a one-fact flag requirement with an optional forced recovery.
func preFlag(key func(e *Env) (state.Key, bool), want state.Ternary, kind model.FindingKind, detail string) Precondition {
	return Precondition{
		Kind:     kind,
		Severity: model.SeverityFatal,
		Check: func(e *Env) (Verdict, string) {
			k, ok := key(e)
			if !ok {
				return Sat, ""
			}
			v := e.FlagIs(k, want)
			if v == Violated {
				return Violated, detail
			}
			return v, ""
		},
		Recover: func(e *Env) {
			if k, ok := key(e); ok {
				e.SetFlag(k, want)
			}
		},
	}
}

func resourceFlagKey(resourceArg, fact string) func(e *Env) (state.Key, bool) {
	return func(e *Env) (state.Key, bool) {
		resource, err := e.String(resourceArg)
		if err != nil {
			return state.Key{}, false
		}
		return instFact(resource, fact), true
	}
}

// --- shared effects ---

// applyPickUp loads tips from the addressed spots onto the head.
func applyPickUp(src refSource) func(e *Env) {
	return func(e *Env) {
		for i, ref := range refsOf(e, src) {
			e.SetFlag(spotTip(ref), state.False)
			e.SetFlag(channel(i, state.FactTipPresent), state.True)
			e.SetNumber(channel(i, state.FactVolume), cty.Zero)
			tipCap := e.StaticCapacity(ref.Resource)
			if tipCap == cty.NilVal {
				tipCap = cty.Zero
			}
			e.SetNumber(channel(i, state.FactTipCapacity), tipCap)
		}
	}
}

// applyDrop unloads the mapped channels; tip-rack targets get their spots
// refilled (returning tips), anything else swallows them.
func applyDrop(src refSource) func(e *Env) {
	return func(e *Env) {
		set, err := src(e)
		if err != nil {
			return
		}
		for i, ref := range e.Elements(set) {
			e.SetFlag(channel(i, state.FactTipPresent), state.False)
			e.SetNumber(channel(i, state.FactVolume), cty.Zero)
			e.SetNumber(channel(i, state.FactTipCapacity), cty.Zero)
			if set.Kind == model.ElementTipSpot {
				e.SetFlag(spotTip(ref), state.True)
			}
		}
	}
}

// applyAspirate moves volume from wells into the mapped channels.
func applyAspirate(src refSource, volArg string) func(e *Env) {
	return func(e *Env) {
		lo, hi := volume(e, volArg)
		for i, ref := range refsOf(e, src) {
			wellCap := e.StaticCapacity(ref.Resource)
			e.AddAmount(wellVolume(ref), negate(hi), negate(lo), cty.Zero, wellCap)
			_, tipCap := e.State.Peek(channel(i, state.FactTipCapacity)).Interval()
			e.AddAmount(channel(i, state.FactVolume), lo, hi, cty.Zero, tipCap)
		}
	}
}

// applyDispense moves volume from the mapped channels into wells.
func applyDispense(src refSource, volArg string) func(e *Env) {
	return func(e *Env) {
		lo, hi := volume(e, volArg)
		for i, ref := range refsOf(e, src) {
			_, tipCap := e.State.Peek(channel(i, state.FactTipCapacity)).Interval()
			e.AddAmount(channel(i, state.FactVolume), negate(hi), negate(lo), cty.Zero, tipCap)
			wellCap := e.StaticCapacity(ref.Resource)
			e.AddAmount(wellVolume(ref), lo, hi, cty.Zero, wellCap)
		}
	}
}

func negate(v cty.Value) cty.Value {
	if v == cty.NilVal {
		return cty.NilVal
	}
	return v.Negate()
}

// channelRange visits channels 0..n-1 where n comes from an optional
// integer argument, defaulting when absent.
func channelRange(e *Env, arg string, def int) int {
	lo, hi, err := e.Number(arg)
	if err != nil || lo == cty.NilVal || hi == cty.NilVal || !lo.Equals(hi).True() {
		return def
	}
	n, _ := lo.AsBigFloat().Int64()
	if n < 0 {
		return def
	}
	return int(n)
}

// --- registration ---

func registerTipOps(r *Registry) {
	r.Register(&Contract{
		Name:       "pick_up_tips",
		Require:    []string{"resource", "tips"},
		Selections: []Selection{tipsSel},
		Pre: []Precondition{
			preSpotsHaveTips(fromSelection(tipsSel)),
			preChannelsFree(fromSelection(tipsSel)),
		},
		Apply: applyPickUp(fromSelection(tipsSel)),
	})

	r.Register(&Contract{
		Name:       "drop_tips",
		Require:    []string{"resource", "tips"},
		Selections: []Selection{tipsSel},
		Pre:        []Precondition{preTipsLoaded(fromSelection(tipsSel))},
		Apply:      applyDrop(fromSelection(tipsSel)),
	})

	r.Register(&Contract{
		Name:       "return_tips",
		Require:    []string{"resource", "tips"},
		Selections: []Selection{tipsSel},
		Pre:        []Precondition{preTipsLoaded(fromSelection(tipsSel))},
		Apply:      applyDrop(fromSelection(tipsSel)),
	})

	r.Register(&Contract{
		Name: "discard_tips",
		Apply: func(e *Env) {
			for i := 0; i < channelRange(e, "channels", 8); i++ {
				e.SetFlag(channel(i, state.FactTipPresent), state.False)
				e.SetNumber(channel(i, state.FactVolume), cty.Zero)
				e.SetNumber(channel(i, state.FactTipCapacity), cty.Zero)
			}
		},
	})

	r.Register(&Contract{
		Name:    "pick_up_tips96",
		Require: []string{"resource"},
		Prepare: func(e *Env) error { _, err := e.All("resource"); return err },
		Pre: []Precondition{
			preSpotsHaveTips(fromAll("resource")),
			preChannelsFree(fromAll("resource")),
		},
		Apply: applyPickUp(fromAll("resource")),
	})

	r.Register(&Contract{
		Name:    "drop_tips96",
		Require: []string{"resource"},
		Prepare: func(e *Env) error { _, err := e.All("resource"); return err },
		Pre:     []Precondition{preTipsLoaded(fromAll("resource"))},
		Apply:   applyDrop(fromAll("resource")),
	})
}

func registerLiquidOps(r *Registry) {
	r.Register(&Contract{
		Name:       "aspirate",
		Require:    []string{"resource", "wells", "volume_ul"},
		Selections: []Selection{wellsSel},
		Pre: []Precondition{
			preTipsLoaded(fromSelection(wellsSel)),
			prePlateOpen("resource"),
			preWellsHoldVolume(fromSelection(wellsSel), "volume_ul", nil),
			preTipsFit(fromSelection(wellsSel), "volume_ul"),
		},
		Apply: applyAspirate(fromSelection(wellsSel), "volume_ul"),
	})

	r.Register(&Contract{
		Name:       "dispense",
		Require:    []string{"resource", "wells", "volume_ul"},
		Selections: []Selection{wellsSel},
		Pre: []Precondition{
			preTipsLoaded(fromSelection(wellsSel)),
			prePlateOpen("resource"),
			preTipsHoldVolume(fromSelection(wellsSel), "volume_ul"),
			preWellsFit(fromSelection(wellsSel), "volume_ul", nil),
		},
		Apply: applyDispense(fromSelection(wellsSel), "volume_ul"),
	})

	r.Register(&Contract{
		Name:    "aspirate96",
		Require: []string{"resource", "volume_ul"},
		Prepare: func(e *Env) error { _, err := e.All("resource"); return err },
		Pre: []Precondition{
			preTipsLoaded(fromAll("resource")),
			prePlateOpen("resource"),
			preWellsHoldVolume(fromAll("resource"), "volume_ul", nil),
			preTipsFit(fromAll("resource"), "volume_ul"),
		},
		Apply: applyAspirate(fromAll("resource"), "volume_ul"),
	})

	r.Register(&Contract{
		Name:    "dispense96",
		Require: []string{"resource", "volume_ul"},
		Prepare: func(e *Env) error { _, err := e.All("resource"); return err },
		Pre: []Precondition{
			preTipsLoaded(fromAll("resource")),
			prePlateOpen("resource"),
			preTipsHoldVolume(fromAll("resource"), "volume_ul"),
			preWellsFit(fromAll("resource"), "volume_ul", nil),
		},
		Apply: applyDispense(fromAll("resource"), "volume_ul"),
	})

	r.Register(&Contract{
		Name:       "transfer",
		Require:    []string{"source", "source_wells", "target", "target_wells", "volume_ul"},
		Selections: []Selection{sourceSel, targetSel},
		Pre: []Precondition{
			preTipsLoaded(fromSelection(sourceSel)),
			prePlateOpen("source"),
			prePlateOpen("target"),
			preWellsHoldVolume(fromSelection(sourceSel), "volume_ul", nil),
			preTipsFit(fromSelection(sourceSel), "volume_ul"),
			preWellsFit(fromSelection(targetSel), "volume_ul", nil),
		},
		Apply: func(e *Env) {
			lo, hi := volume(e, "volume_ul")
			for _, ref := range refsOf(e, fromSelection(sourceSel)) {
				e.AddAmount(wellVolume(ref), negate(hi), negate(lo), cty.Zero, e.StaticCapacity(ref.Resource))
			}
			for _, ref := range refsOf(e, fromSelection(targetSel)) {
				e.AddAmount(wellVolume(ref), lo, hi, cty.Zero, e.StaticCapacity(ref.Resource))
			}
		},
	})

	targetCount := func(e *Env) int {
		n := len(refsOf(e, fromSelection(targetSel)))
		if n == 0 {
			return 1
		}
		return n
	}
	r.Register(&Contract{
		Name:       "distribute",
		Require:    []string{"source", "source_wells", "target", "target_wells", "volume_ul"},
		Selections: []Selection{sourceSel, targetSel},
		Pre: []Precondition{
			preTipsLoaded(fromSelection(sourceSel)),
			preWellsHoldVolume(fromSelection(sourceSel), "volume_ul", targetCount),
			preWellsFit(fromSelection(targetSel), "volume_ul", nil),
		},
		Apply: func(e *Env) {
			lo, hi := volume(e, "volume_ul")
			n := cty.NumberIntVal(int64(targetCount(e)))
			for _, ref := range refsOf(e, fromSelection(sourceSel)) {
				e.AddAmount(wellVolume(ref), negate(mul(hi, n)), negate(mul(lo, n)), cty.Zero, e.StaticCapacity(ref.Resource))
			}
			for _, ref := range refsOf(e, fromSelection(targetSel)) {
				e.AddAmount(wellVolume(ref), lo, hi, cty.Zero, e.StaticCapacity(ref.Resource))
			}
		},
	})

	sourceCount := func(e *Env) int {
		n := len(refsOf(e, fromSelection(sourceSel)))
		if n == 0 {
			return 1
		}
		return n
	}
	r.Register(&Contract{
		Name:       "consolidate",
		Require:    []string{"source", "source_wells", "target", "target_wells", "volume_ul"},
		Selections: []Selection{sourceSel, targetSel},
		Pre: []Precondition{
			preTipsLoaded(fromSelection(sourceSel)),
			preWellsHoldVolume(fromSelection(sourceSel), "volume_ul", nil),
			preWellsFit(fromSelection(targetSel), "volume_ul", sourceCount),
		},
		Apply: func(e *Env) {
			lo, hi := volume(e, "volume_ul")
			n := cty.NumberIntVal(int64(sourceCount(e)))
			for _, ref := range refsOf(e, fromSelection(sourceSel)) {
				e.AddAmount(wellVolume(ref), negate(hi), negate(lo), cty.Zero, e.StaticCapacity(ref.Resource))
			}
			for _, ref := range refsOf(e, fromSelection(targetSel)) {
				e.AddAmount(wellVolume(ref), mul(lo, n), mul(hi, n), cty.Zero, e.StaticCapacity(ref.Resource))
			}
		},
	})

	r.Register(&Contract{
		Name:       "mix",
		Require:    []string{"resource", "wells", "volume_ul"},
		Selections: []Selection{wellsSel},
		Pre: []Precondition{
			preTipsLoaded(fromSelection(wellsSel)),
			prePlateOpen("resource"),
			preWellsHoldVolume(fromSelection(wellsSel), "volume_ul", nil),
		},
		// mixing aspirates and dispenses in place; no net volume change
	})

	r.Register(&Contract{
		Name:       "blow_out",
		Require:    []string{"resource", "wells"},
		Selections: []Selection{wellsSel},
		Pre:        []Precondition{preTipsLoaded(fromSelection(wellsSel))},
		Apply: func(e *Env) {
			for i := range refsOf(e, fromSelection(wellsSel)) {
				e.SetNumber(channel(i, state.FactVolume), cty.Zero)
			}
		},
	})

	r.Register(&Contract{
		Name:    "air_gap",
		Require: []string{"volume_ul"},
		Pre: []Precondition{{
			Kind:     model.FindingTipOverflow,
			Severity: model.SeverityFatal,
			Check: func(e *Env) (Verdict, string) {
				lo, hi := volume(e, "volume_ul")
				for i := 0; i < channelRange(e, "channels", 1); i++ {
					v := e.FitsWithinKey(channel(i, state.FactVolume), lo, hi, channel(i, state.FactTipCapacity))
					switch v {
					case Violated:
						return Violated, fmt.Sprintf("air gap exceeds tip capacity on channel %d", i)
					case Unknown:
						return Unknown, ""
					}
				}
				return Sat, ""
			},
		}},
		Apply: func(e *Env) {
			lo, hi := volume(e, "volume_ul")
			for i := 0; i < channelRange(e, "channels", 1); i++ {
				_, tipCap := e.State.Peek(channel(i, state.FactTipCapacity)).Interval()
				e.AddAmount(channel(i, state.FactVolume), lo, hi, cty.Zero, tipCap)
			}
		},
	})

	r.Register(&Contract{
		Name:       "touch_tip",
		Require:    []string{"resource", "wells"},
		Selections: []Selection{wellsSel},
		Pre:        []Precondition{preTipsLoaded(fromSelection(wellsSel))},
	})

	r.Register(&Contract{
		Name: "wash_tips",
		Apply: func(e *Env) {
			for i := 0; i < channelRange(e, "channels", 8); i++ {
				e.SetNumber(channel(i, state.FactVolume), cty.Zero)
			}
		},
	})

	r.Register(&Contract{Name: "prime"})
}

func registerMovementOps(r *Registry) {
	moveApply := func(e *Env) {
		resource, err := e.String("resource")
		if err != nil {
			return
		}
		to, err := e.String("to_slot")
		if err != nil {
			return
		}
		slotKey := instFact(resource, state.FactSlot)
		if from, known := e.State.Peek(slotKey).Str(); known && !e.Widen {
			e.SetFlag(slotOccupied(from), state.False)
		}
		e.SetSlot(slotKey, to)
		e.SetFlag(slotOccupied(to), state.True)
	}

	for _, name := range []string{"move_plate", "move_resource", "move_lid"} {
		r.Register(&Contract{
			Name:    name,
			Require: []string{"resource", "to_slot"},
			Pre:     []Precondition{preSlotFree("to_slot")},
			Apply:   moveApply,
		})
	}

	r.Register(&Contract{
		Name:    "assign_resource",
		Require: []string{"resource", "slot"},
		Pre:     []Precondition{preSlotFree("slot")},
		Apply: func(e *Env) {
			resource, err := e.String("resource")
			if err != nil {
				return
			}
			slot, err := e.String("slot")
			if err != nil {
				return
			}
			e.SetSlot(instFact(resource, state.FactSlot), slot)
			e.SetFlag(slotOccupied(slot), state.True)
		},
	})

	r.Register(&Contract{
		Name:    "unassign_resource",
		Require: []string{"resource"},
		Apply: func(e *Env) {
			resource, err := e.String("resource")
			if err != nil {
				return
			}
			slotKey := instFact(resource, state.FactSlot)
			if from, known := e.State.Peek(slotKey).Str(); known && !e.Widen {
				e.SetFlag(slotOccupied(from), state.False)
			}
			e.State.Mutate(slotKey).ForgetStr()
		},
	})

	homeApply := func(e *Env) {
		e.SetFlag(state.Key{Resource: state.ResourceHead, Fact: state.FactHomed}, state.True)
	}
	r.Register(&Contract{Name: "home", Apply: homeApply})
	r.Register(&Contract{Name: "park", Apply: homeApply})
}

func registerThermalOps(r *Registry) {
	r.Register(&Contract{
		Name:    "set_temperature",
		Require: []string{"resource", "temperature_c"},
		Apply: func(e *Env) {
			resource, err := e.String("resource")
			if err != nil {
				return
			}
			// the device ramps toward the target: until a wait, anything
			// between the old and new temperature is reachable
			lo, hi := volume(e, "temperature_c")
			e.WidenNumber(instFact(resource, state.FactTemperature), lo, hi)
		},
	})

	r.Register(&Contract{
		Name:    "wait_for_temperature",
		Require: []string{"resource", "temperature_c"},
		Apply: func(e *Env) {
			resource, err := e.String("resource")
			if err != nil {
				return
			}
			lo, hi := volume(e, "temperature_c")
			if lo != cty.NilVal && hi != cty.NilVal && lo.Equals(hi).True() {
				e.SetNumber(instFact(resource, state.FactTemperature), lo)
				return
			}
			e.State.Mutate(instFact(resource, state.FactTemperature)).SetInterval(lo, hi)
		},
	})

	r.Register(&Contract{
		Name:    "deactivate_temperature",
		Require: []string{"resource"},
		Apply: func(e *Env) {
			resource, err := e.String("resource")
			if err != nil {
				return
			}
			ambient := cty.NumberIntVal(state.AmbientTemperatureC)
			e.WidenNumber(instFact(resource, state.FactTemperature), ambient, ambient)
		},
	})

	r.Register(&Contract{Name: "incubate", Require: []string{"resource"}})
}

func registerShakerOps(r *Registry) {
	r.Register(&Contract{
		Name:    "shake",
		Require: []string{"resource"},
		Pre: []Precondition{preFlag(resourceFlagKey("resource", state.FactLocked), state.True,
			model.FindingCollision, "plate is not locked to the shaker")},
		Apply: func(e *Env) {
			if resource, err := e.String("resource"); err == nil {
				e.SetFlag(instFact(resource, state.FactShaking), state.True)
			}
		},
	})

	r.Register(&Contract{
		Name:    "stop_shake",
		Require: []string{"resource"},
		Apply: func(e *Env) {
			if resource, err := e.String("resource"); err == nil {
				e.SetFlag(instFact(resource, state.FactShaking), state.False)
			}
		},
	})

	r.Register(&Contract{
		Name:    "lock_plate",
		Require: []string{"resource"},
		Apply: func(e *Env) {
			if resource, err := e.String("resource"); err == nil {
				e.SetFlag(instFact(resource, state.FactLocked), state.True)
			}
		},
	})

	r.Register(&Contract{
		Name:    "unlock_plate",
		Require: []string{"resource"},
		Pre: []Precondition{preFlag(resourceFlagKey("resource", state.FactShaking), state.False,
			model.FindingCollision, "cannot unlock while shaking")},
		Apply: func(e *Env) {
			if resource, err := e.String("resource"); err == nil {
				e.SetFlag(instFact(resource, state.FactLocked), state.False)
			}
		},
	})
}

func registerLidOps(r *Registry) {
	lidApply := func(fact string, v state.Ternary) func(e *Env) {
		return func(e *Env) {
			if resource, err := e.String("resource"); err == nil {
				e.SetFlag(instFact(resource, fact), v)
			}
		}
	}
	r.Register(&Contract{Name: "open_lid", Require: []string{"resource"},
		Apply: lidApply(state.FactLidClosed, state.False)})
	r.Register(&Contract{Name: "close_lid", Require: []string{"resource"},
		Apply: lidApply(state.FactLidClosed, state.True)})
	r.Register(&Contract{Name: "seal_plate", Require: []string{"resource"},
		Apply: lidApply(state.FactSealed, state.True)})
	r.Register(&Contract{Name: "peel_seal", Require: []string{"resource"},
		Apply: lidApply(state.FactSealed, state.False)})
}

func registerReaderOps(r *Registry) {
	for _, name := range []string{"read_absorbance", "read_luminescence", "read_fluorescence"} {
		r.Register(&Contract{
			Name:    name,
			Require: []string{"resource"},
			Pre: []Precondition{preFlag(resourceFlagKey("resource", state.FactShaking), state.False,
				model.FindingCollision, "cannot read while the plate is shaking")},
		})
	}
}

func mul(v, n cty.Value) cty.Value {
	if v == cty.NilVal {
		return cty.NilVal
	}
	return v.Multiply(n)
}
