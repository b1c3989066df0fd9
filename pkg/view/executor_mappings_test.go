package view

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/rowstream"
)

var _ = Describe("executeMappings", func() {
	ctx := context.Background()
	cmp := DefaultComparators[int, int]()

	run := func(prior []KeyMapping[int, int], ins []keyMappingInstruction[int, int]) []KeyMapping[int, int] {
		stream := rowstream.NewMemStream()
		out := rowstream.NewBatchWriter(rowstream.NewWriter[KeyMapping[int, int]]("km", stream, rowstream.JSONCodec[KeyMapping[int, int]]{}), 4)
		Expect(executeMappings(ctx, cmp, cursor.NewSlice(prior), cursor.NewSlice(ins), out)).NotTo(HaveOccurred())
		Expect(out.Close(ctx)).NotTo(HaveOccurred())
		c, err := rowstream.Read[KeyMapping[int, int]]("km", stream, rowstream.JSONCodec[KeyMapping[int, int]]{})
		Expect(err).NotTo(HaveOccurred())
		rows, err := cursor.Collect(c)
		Expect(err).NotTo(HaveOccurred())
		return rows
	}

	It("passes an untouched existing row through unchanged", func() {
		rows := run([]KeyMapping[int, int]{{SourceKey: 1, TargetKey: 10}}, nil)
		Expect(rows).To(Equal([]KeyMapping[int, int]{{SourceKey: 1, TargetKey: 10}}))
	})

	It("drops a row whose only instruction is a deletion", func() {
		rows := run(
			[]KeyMapping[int, int]{{SourceKey: 1, TargetKey: 10}},
			[]keyMappingInstruction[int, int]{{SourceKey: 1, TargetKey: 10, Deletion: true}},
		)
		Expect(rows).To(BeEmpty())
	})

	It("lets an instruction-led group replace an existing row with a new target", func() {
		rows := run(
			[]KeyMapping[int, int]{{SourceKey: 1, TargetKey: 10}},
			[]keyMappingInstruction[int, int]{
				{SourceKey: 1, TargetKey: 10, Deletion: true},
				{SourceKey: 1, TargetKey: 20},
			},
		)
		Expect(rows).To(Equal([]KeyMapping[int, int]{{SourceKey: 1, TargetKey: 20}}))
	})

	It("adds a row with no prior mapping at all", func() {
		rows := run(nil, []keyMappingInstruction[int, int]{{SourceKey: 2, TargetKey: 30}})
		Expect(rows).To(Equal([]KeyMapping[int, int]{{SourceKey: 2, TargetKey: 30}}))
	})
})
