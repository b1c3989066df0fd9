package view

import (
	"context"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/order"
	"github.com/hsnlab/matview/pkg/rowstream"
)

// mergeHead is one cursor's current (SourceKey, TargetKey) head, tagged
// with which side of the merge it came from.
type mergeHead[SK, TK any] struct {
	SourceKey   SK
	TargetKey   TK
	Instruction bool
}

// executeMappings merges prior KeyMappings against mappingInstructions,
// both sorted by (SourceKey, TargetKey), with the synthetic tiebreak that
// instructions precede existing rows at an identical key. Groups of equal
// (SourceKey, TargetKey)
// are processed together: a group led by an instruction discards any
// matching existing row and replays every instruction in the group (each
// non-deletion instruction emits a row); a group with no instruction simply
// passes its one existing row through.
func executeMappings[SK, TK any](
	ctx context.Context,
	cmp Comparators[SK, TK],
	priorMappings cursor.Cursor[KeyMapping[SK, TK]],
	instructions cursor.Cursor[keyMappingInstruction[SK, TK]],
	out *rowstream.BatchWriter[KeyMapping[SK, TK]],
) error {
	pairLess := order.Then(cmp.SourceKey, cmp.TargetKey)

	// headOrder's tiebreak implements the "instructions precede existing
	// rows at an identical key" rule: on an equal (SourceKey, TargetKey),
	// the instruction-side head sorts first.
	headOrder := order.Tiebreak(
		func(a, b mergeHead[SK, TK]) int { return pairLess(a.SourceKey, a.TargetKey, b.SourceKey, b.TargetKey) },
		func(a, b mergeHead[SK, TK]) bool { return a.Instruction && !b.Instruction },
	)

	for instructions.Valid() || priorMappings.Valid() {
		var groupSK SK
		var groupTK TK
		switch {
		case instructions.Valid() && priorMappings.Valid():
			i, e := instructions.Value(), priorMappings.Value()
			ih := mergeHead[SK, TK]{SourceKey: i.SourceKey, TargetKey: i.TargetKey, Instruction: true}
			eh := mergeHead[SK, TK]{SourceKey: e.SourceKey, TargetKey: e.TargetKey, Instruction: false}
			if headOrder(ih, eh) <= 0 {
				groupSK, groupTK = i.SourceKey, i.TargetKey
			} else {
				groupSK, groupTK = e.SourceKey, e.TargetKey
			}
		case instructions.Valid():
			i := instructions.Value()
			groupSK, groupTK = i.SourceKey, i.TargetKey
		default:
			e := priorMappings.Value()
			groupSK, groupTK = e.SourceKey, e.TargetKey
		}

		sameGroup := func(sk SK, tk TK) bool {
			return pairLess(sk, tk, groupSK, groupTK) == 0
		}

		hasInstruction := instructions.Valid() && sameGroup(instructions.Value().SourceKey, instructions.Value().TargetKey)

		if hasInstruction {
			for priorMappings.Valid() && sameGroup(priorMappings.Value().SourceKey, priorMappings.Value().TargetKey) {
				if err := priorMappings.Next(); err != nil {
					return err
				}
			}
			for instructions.Valid() && sameGroup(instructions.Value().SourceKey, instructions.Value().TargetKey) {
				ins := instructions.Value()
				if !ins.Deletion {
					if err := out.Append(ctx, KeyMapping[SK, TK]{SourceKey: ins.SourceKey, TargetKey: ins.TargetKey}); err != nil {
						return err
					}
				}
				if err := instructions.Next(); err != nil {
					return err
				}
			}
			continue
		}

		// No instruction touches this key: the existing row passes
		// through unchanged. KeyMappings can hold duplicate (SK, TK) rows,
		// mirroring Content's multiplicity; each duplicate passes through
		// on its own iteration of the outer loop.
		row := priorMappings.Value()
		if err := out.Append(ctx, row); err != nil {
			return err
		}
		if err := priorMappings.Next(); err != nil {
			return err
		}
	}

	return nil
}
