package view

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/extsort"
	"github.com/hsnlab/matview/pkg/rowstream"
)

func newContentSorter() *extsort.Sorter[contentInstruction[int, int, string]] {
	cmp := contentInstructionOrder[int, int, string](DefaultComparators[int, int]())
	return extsort.New[contentInstruction[int, int, string]](
		"ci", cmp, rowstream.JSONCodec[contentInstruction[int, int, string]]{}, rowstream.MemTempFactory{}, 4, 2)
}

func newMappingSorter() *extsort.Sorter[keyMappingInstruction[int, int]] {
	cmp := keyMappingInstructionOrder[int, int](DefaultComparators[int, int]())
	return extsort.New[keyMappingInstruction[int, int]](
		"mi", cmp, rowstream.JSONCodec[keyMappingInstruction[int, int]]{}, rowstream.MemTempFactory{}, 4, 2)
}

var _ = Describe("generateInstructions", func() {
	ctx := context.Background()
	identity := func(key int, values ValueSeq[string]) ([]TargetPair[int, string], error) {
		var out []TargetPair[int, string]
		for values.Valid() {
			out = append(out, TargetPair[int, string]{Key: key, Value: values.Value()})
			if err := values.Next(); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	It("emits one add instruction pair per produced target", func() {
		ci, mi := newContentSorter(), newMappingSorter()
		updates := cursor.NewSlice([]SourceUpdate[int, string]{{Type: Add, Key: 1, Value: "a"}})
		Expect(generateInstructions(ctx, DefaultComparators[int, int](), cursor.Empty[KeyMapping[int, int]](), updates, identity, ci, mi)).NotTo(HaveOccurred())
		Expect(ci.Finish(ctx)).NotTo(HaveOccurred())
		Expect(mi.Finish(ctx)).NotTo(HaveOccurred())

		cc, err := ci.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		rows, err := cursor.Collect(cc)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(Equal([]contentInstruction[int, int, string]{{TargetKey: 1, SourceKey: 1, Value: "a"}}))
	})

	It("emits a delete instruction pair for every prior mapping of a deleted key", func() {
		ci, mi := newContentSorter(), newMappingSorter()
		prior := cursor.NewSlice([]KeyMapping[int, int]{{SourceKey: 1, TargetKey: 5}})
		updates := cursor.NewSlice([]SourceUpdate[int, string]{{Type: Delete, Key: 1}})
		Expect(generateInstructions(ctx, DefaultComparators[int, int](), prior, updates, identity, ci, mi)).NotTo(HaveOccurred())
		Expect(ci.Finish(ctx)).NotTo(HaveOccurred())
		Expect(mi.Finish(ctx)).NotTo(HaveOccurred())

		cc, err := ci.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		rows, err := cursor.Collect(cc)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(Equal([]contentInstruction[int, int, string]{{TargetKey: 5, SourceKey: 1, Deletion: true}}))
	})

	It("fails with ProducerUnderconsumed when Produce returns before draining its values", func() {
		ci, mi := newContentSorter(), newMappingSorter()
		lazy := func(key int, values ValueSeq[string]) ([]TargetPair[int, string], error) {
			return nil, nil
		}
		updates := cursor.NewSlice([]SourceUpdate[int, string]{{Type: Add, Key: 1, Value: "a"}, {Type: Add, Key: 1, Value: "b"}})
		err := generateInstructions(ctx, DefaultComparators[int, int](), cursor.Empty[KeyMapping[int, int]](), updates, lazy, ci, mi)
		Expect(err).To(HaveOccurred())
	})

	It("fails with an ordering error when source updates are not strictly increasing", func() {
		ci, mi := newContentSorter(), newMappingSorter()
		updates := cursor.NewSlice([]SourceUpdate[int, string]{{Type: Add, Key: 5, Value: "a"}, {Type: Add, Key: 3, Value: "b"}})
		err := generateInstructions(ctx, DefaultComparators[int, int](), cursor.Empty[KeyMapping[int, int]](), updates, identity, ci, mi)
		Expect(err).To(HaveOccurred())
	})
})
