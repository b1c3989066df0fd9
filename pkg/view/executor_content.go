package view

import (
	"context"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/order"
	"github.com/hsnlab/matview/pkg/rowstream"
)

// pendingDeleteState is an explicit three-case tagged variant: None /
// Requested / RuledOut, implemented as a plain enum plus the held TargetKey
// rather than via closures or exception flow.
type pendingDeleteState int

const (
	pendingNone pendingDeleteState = iota
	pendingRequested
	pendingRuledOut
)

// deltaEmitter derives the Updates stream for one Content executor pass. It
// holds a single pending-delete slot: a Delete instruction for a TargetKey
// is never forwarded immediately, since a later Upsert for the very same
// key in the same pass would turn it into a no-op replacement rather than a
// real delete-then-add.
type deltaEmitter[TK, TV any] struct {
	state pendingDeleteState
	held  TK

	out *rowstream.BatchWriter[SourceUpdate[TK, TV]]
}

func newDeltaEmitter[TK, TV any](
	out *rowstream.BatchWriter[SourceUpdate[TK, TV]],
) *deltaEmitter[TK, TV] {
	return &deltaEmitter[TK, TV]{state: pendingNone, out: out}
}

func (d *deltaEmitter[TK, TV]) emitUpdate(ctx context.Context, k TK, v TV) error {
	return d.out.Append(ctx, SourceUpdate[TK, TV]{Type: Update, Key: k, Value: v})
}

func (d *deltaEmitter[TK, TV]) emitDelete(ctx context.Context, k TK) error {
	return d.out.Append(ctx, SourceUpdate[TK, TV]{Type: Delete, Key: k})
}

// SendDelete requests that k's last surviving row be reported as deleted.
// A request for the key already held is a no-op. A request for a different
// key first flushes the held key's Delete if it is still Requested (a
// RuledOut key is dropped without a Delete), then holds k as Requested.
func (d *deltaEmitter[TK, TV]) SendDelete(ctx context.Context, keyEq func(a, b TK) int, k TK) error {
	switch d.state {
	case pendingNone:
		d.state, d.held = pendingRequested, k
	case pendingRequested:
		if keyEq(k, d.held) != 0 {
			if err := d.emitDelete(ctx, d.held); err != nil {
				return err
			}
			d.state, d.held = pendingRequested, k
		}
	case pendingRuledOut:
		if keyEq(k, d.held) != 0 {
			d.state, d.held = pendingRequested, k
		}
	}
	return nil
}

// SendUpsert reports that k now has a surviving row with value v.
func (d *deltaEmitter[TK, TV]) SendUpsert(ctx context.Context, keyEq func(a, b TK) int, k TK, v TV) error {
	switch d.state {
	case pendingNone:
		return d.emitUpdate(ctx, k, v)
	case pendingRequested:
		if keyEq(k, d.held) == 0 {
			d.state = pendingRuledOut
		} else {
			if err := d.emitDelete(ctx, d.held); err != nil {
				return err
			}
			d.state = pendingNone
		}
		return d.emitUpdate(ctx, k, v)
	case pendingRuledOut:
		if keyEq(k, d.held) != 0 {
			d.state = pendingNone
		}
		return d.emitUpdate(ctx, k, v)
	}
	return nil
}

// Finish flushes a still-pending delete request. A RuledOut key has, by
// definition, already had its deletion cancelled and is never flushed here.
func (d *deltaEmitter[TK, TV]) Finish(ctx context.Context) error {
	if d.state == pendingRequested {
		if err := d.emitDelete(ctx, d.held); err != nil {
			return err
		}
	}
	d.state = pendingNone
	return nil
}

// PreserveKeyValues, when supplied, lets a Stage carry a representative
// value across a TargetKey whose owning row was replaced rather than
// touched. It receives the newly produced value and the most recent
// existing value this pass has seen for the same TargetKey, if any; it
// returns the value actually written to Content and reported in the delta.
type PreserveKeyValues[TV any] func(newValue TV, exemplar *TV) TV

// executeContent merges prior Content against contentInstructions, both
// sorted by (TargetKey, SourceKey), producing the
// new Content stream and, on the side, the TargetKey-level Updates delta.
//
// The three-way classification compares the full (TargetKey, SourceKey)
// pair: "both keys equal" discards every existing row at that pair and
// replays every instruction at that pair; "instruction strictly precedes"
// means the instruction names a pair with no existing row; "existing
// strictly precedes" passes an untouched row through, additionally
// re-reporting it as an upsert delta when its TargetKey falls in the
// rolling InstructionTargetKeys window (see twoSlotWindow).
func executeContent[TK, SK, TV any](
	ctx context.Context,
	cmp Comparators[SK, TK],
	priorContent cursor.Cursor[ContentRecord[TK, SK, TV]],
	instructions cursor.Cursor[contentInstruction[TK, SK, TV]],
	preserve PreserveKeyValues[TV],
	contentOut *rowstream.BatchWriter[ContentRecord[TK, SK, TV]],
	deltaOut *rowstream.BatchWriter[SourceUpdate[TK, TV]],
) error {
	pairLess := order.Then(cmp.TargetKey, cmp.SourceKey)

	delta := newDeltaEmitter[TK, TV](deltaOut)
	instructionWindow := newTwoSlotWindow[TK, struct{}](cmp.TargetKey)
	exemplarWindow := newTwoSlotWindow[TK, TV](cmp.TargetKey)

	resolveValue := func(tk TK, v TV) TV {
		if preserve == nil {
			return v
		}
		exemplar, ok := exemplarWindow.Lookup(tk)
		if !ok {
			return preserve(v, nil)
		}
		return preserve(v, &exemplar)
	}

	for instructions.Valid() || priorContent.Valid() {
		// Peek (never consume) the instruction cursor's current head so
		// the window already holds a TargetKey by the time an existing
		// row sharing it, but sorting earlier by SourceKey, is reached.
		if instructions.Valid() {
			instructionWindow.Push(instructions.Value().TargetKey, struct{}{})
		}

		switch {
		case instructions.Valid() && priorContent.Valid():
			ins, exist := instructions.Value(), priorContent.Value()
			switch c := pairLess(exist.TargetKey, exist.SourceKey, ins.TargetKey, ins.SourceKey); {
			case c == 0:
				if err := handleEqualGroup(ctx, cmp, pairLess, ins.TargetKey, ins.SourceKey,
					priorContent, instructions, resolveValue, exemplarWindow, delta, contentOut); err != nil {
					return err
				}
			case c > 0:
				if err := handleInstructionPrecedes(ctx, cmp, instructions, resolveValue, delta, contentOut); err != nil {
					return err
				}
			default:
				if err := handleExistingPrecedes(ctx, cmp, priorContent, instructionWindow, exemplarWindow, delta, contentOut); err != nil {
					return err
				}
			}
		case instructions.Valid():
			if err := handleInstructionPrecedes(ctx, cmp, instructions, resolveValue, delta, contentOut); err != nil {
				return err
			}
		default:
			if err := handleExistingPrecedes(ctx, cmp, priorContent, instructionWindow, exemplarWindow, delta, contentOut); err != nil {
				return err
			}
		}
	}

	return delta.Finish(ctx)
}

// handleEqualGroup discards every existing row at (tk, sk), feeding each
// into the exemplar cache first, then replays every instruction at (tk,
// sk), writing a new Content row and an upsert delta for each non-deletion
// instruction, and a delete request for each deletion instruction.
func handleEqualGroup[TK, SK, TV any](
	ctx context.Context,
	cmp Comparators[SK, TK],
	pairLess func(tk1 TK, sk1 SK, tk2 TK, sk2 SK) int,
	tk TK, sk SK,
	priorContent cursor.Cursor[ContentRecord[TK, SK, TV]],
	instructions cursor.Cursor[contentInstruction[TK, SK, TV]],
	resolveValue func(TK, TV) TV,
	exemplarWindow *twoSlotWindow[TK, TV],
	delta *deltaEmitter[TK, TV],
	contentOut *rowstream.BatchWriter[ContentRecord[TK, SK, TV]],
) error {
	for priorContent.Valid() && pairLess(priorContent.Value().TargetKey, priorContent.Value().SourceKey, tk, sk) == 0 {
		exemplarWindow.Push(priorContent.Value().TargetKey, priorContent.Value().Value)
		if err := priorContent.Next(); err != nil {
			return err
		}
	}

	for instructions.Valid() && pairLess(instructions.Value().TargetKey, instructions.Value().SourceKey, tk, sk) == 0 {
		ins := instructions.Value()
		if ins.Deletion {
			if err := delta.SendDelete(ctx, cmp.TargetKey, ins.TargetKey); err != nil {
				return err
			}
		} else {
			v := resolveValue(ins.TargetKey, ins.Value)
			if err := contentOut.Append(ctx, ContentRecord[TK, SK, TV]{TargetKey: ins.TargetKey, SourceKey: ins.SourceKey, Value: v}); err != nil {
				return err
			}
			if err := delta.SendUpsert(ctx, cmp.TargetKey, ins.TargetKey, v); err != nil {
				return err
			}
		}
		if err := instructions.Next(); err != nil {
			return err
		}
	}

	return nil
}

// handleInstructionPrecedes handles an addition instruction naming a (TK,
// SK) pair with no existing row. A deletion instruction here would name a
// pair that was never in Content, which violates the generator's own
// invariant that deletions always retarget a still-present mapping.
func handleInstructionPrecedes[TK, SK, TV any](
	ctx context.Context,
	cmp Comparators[SK, TK],
	instructions cursor.Cursor[contentInstruction[TK, SK, TV]],
	resolveValue func(TK, TV) TV,
	delta *deltaEmitter[TK, TV],
	contentOut *rowstream.BatchWriter[ContentRecord[TK, SK, TV]],
) error {
	ins := instructions.Value()
	if ins.Deletion {
		return NewUnexpectedDeletionError(ins.TargetKey, ins.SourceKey)
	}
	v := resolveValue(ins.TargetKey, ins.Value)
	if err := contentOut.Append(ctx, ContentRecord[TK, SK, TV]{TargetKey: ins.TargetKey, SourceKey: ins.SourceKey, Value: v}); err != nil {
		return err
	}
	if err := delta.SendUpsert(ctx, cmp.TargetKey, ins.TargetKey, v); err != nil {
		return err
	}
	return instructions.Next()
}

// handleExistingPrecedes passes an untouched existing row through unchanged,
// additionally reporting it as an upsert delta if its TargetKey is still
// within the rolling instruction window.
func handleExistingPrecedes[TK, SK, TV any](
	ctx context.Context,
	cmp Comparators[SK, TK],
	priorContent cursor.Cursor[ContentRecord[TK, SK, TV]],
	instructionWindow *twoSlotWindow[TK, struct{}],
	exemplarWindow *twoSlotWindow[TK, TV],
	delta *deltaEmitter[TK, TV],
	contentOut *rowstream.BatchWriter[ContentRecord[TK, SK, TV]],
) error {
	row := priorContent.Value()
	exemplarWindow.Push(row.TargetKey, row.Value)
	if err := contentOut.Append(ctx, row); err != nil {
		return err
	}
	if instructionWindow.Contains(row.TargetKey) {
		if err := delta.SendUpsert(ctx, cmp.TargetKey, row.TargetKey, row.Value); err != nil {
			return err
		}
	}
	return priorContent.Next()
}
