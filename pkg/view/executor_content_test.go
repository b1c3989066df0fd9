package view

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hsnlab/matview/pkg/cursor"
	"github.com/hsnlab/matview/pkg/order"
	"github.com/hsnlab/matview/pkg/rowstream"
)

var _ = Describe("deltaEmitter", func() {
	ctx := context.Background()
	keyEq := order.Natural[int]()

	newEmitter := func() (*deltaEmitter[int, string], *rowstream.BatchWriter[SourceUpdate[int, string]], rowstream.Stream) {
		stream := rowstream.NewMemStream()
		out := rowstream.NewBatchWriter(rowstream.NewWriter[SourceUpdate[int, string]]("d", stream, rowstream.JSONCodec[SourceUpdate[int, string]]{}), 4)
		return newDeltaEmitter[int, string](out), out, stream
	}

	collect := func(out *rowstream.BatchWriter[SourceUpdate[int, string]], stream rowstream.Stream) []SourceUpdate[int, string] {
		Expect(out.Close(ctx)).NotTo(HaveOccurred())
		c, err := rowstream.Read[SourceUpdate[int, string]]("d", stream, rowstream.JSONCodec[SourceUpdate[int, string]]{})
		Expect(err).NotTo(HaveOccurred())
		rows, err := cursor.Collect(c)
		Expect(err).NotTo(HaveOccurred())
		return rows
	}

	It("holds a delete until Finish when nothing cancels it", func() {
		d, out, stream := newEmitter()
		Expect(d.SendDelete(ctx, keyEq, 1)).NotTo(HaveOccurred())
		Expect(d.Finish(ctx)).NotTo(HaveOccurred())
		Expect(collect(out, stream)).To(Equal([]SourceUpdate[int, string]{{Type: Delete, Key: 1}}))
	})

	It("turns a delete-then-upsert of the same key into a plain update, never a delete", func() {
		d, out, stream := newEmitter()
		Expect(d.SendDelete(ctx, keyEq, 1)).NotTo(HaveOccurred())
		Expect(d.SendUpsert(ctx, keyEq, 1, "v")).NotTo(HaveOccurred())
		Expect(d.Finish(ctx)).NotTo(HaveOccurred())
		Expect(collect(out, stream)).To(Equal([]SourceUpdate[int, string]{{Type: Update, Key: 1, Value: "v"}}))
	})

	It("flushes a still-pending delete for a different key once a later key is upserted", func() {
		d, out, stream := newEmitter()
		Expect(d.SendDelete(ctx, keyEq, 1)).NotTo(HaveOccurred())
		Expect(d.SendUpsert(ctx, keyEq, 2, "v")).NotTo(HaveOccurred())
		Expect(d.Finish(ctx)).NotTo(HaveOccurred())
		Expect(collect(out, stream)).To(Equal([]SourceUpdate[int, string]{
			{Type: Delete, Key: 1},
			{Type: Update, Key: 2, Value: "v"},
		}))
	})

	It("re-requests a delete for a new key once a ruled-out key moves on", func() {
		d, out, stream := newEmitter()
		Expect(d.SendDelete(ctx, keyEq, 1)).NotTo(HaveOccurred())
		Expect(d.SendUpsert(ctx, keyEq, 1, "v")).NotTo(HaveOccurred()) // ruled out
		Expect(d.SendDelete(ctx, keyEq, 2)).NotTo(HaveOccurred())      // re-request under new key
		Expect(d.Finish(ctx)).NotTo(HaveOccurred())
		Expect(collect(out, stream)).To(Equal([]SourceUpdate[int, string]{
			{Type: Update, Key: 1, Value: "v"},
			{Type: Delete, Key: 2},
		}))
	})

	It("never flushes a ruled-out delete", func() {
		d, out, stream := newEmitter()
		Expect(d.SendDelete(ctx, keyEq, 1)).NotTo(HaveOccurred())
		Expect(d.SendUpsert(ctx, keyEq, 1, "v")).NotTo(HaveOccurred())
		Expect(d.Finish(ctx)).NotTo(HaveOccurred())
		Expect(collect(out, stream)).To(Equal([]SourceUpdate[int, string]{{Type: Update, Key: 1, Value: "v"}}))
	})
})

var _ = Describe("executeContent", func() {
	ctx := context.Background()
	cmp := Comparators[int, int]{SourceKey: order.Natural[int](), TargetKey: order.Natural[int]()}

	run := func(
		prior []ContentRecord[int, int, string],
		ins []contentInstruction[int, int, string],
		preserve PreserveKeyValues[string],
	) ([]ContentRecord[int, int, string], []SourceUpdate[int, string]) {
		contentStream := rowstream.NewMemStream()
		contentOut := rowstream.NewBatchWriter(rowstream.NewWriter[ContentRecord[int, int, string]]("c", contentStream, rowstream.JSONCodec[ContentRecord[int, int, string]]{}), 4)
		deltaStream := rowstream.NewMemStream()
		deltaOut := rowstream.NewBatchWriter(rowstream.NewWriter[SourceUpdate[int, string]]("u", deltaStream, rowstream.JSONCodec[SourceUpdate[int, string]]{}), 4)

		Expect(executeContent(ctx, cmp, cursor.NewSlice(prior), cursor.NewSlice(ins), preserve, contentOut, deltaOut)).NotTo(HaveOccurred())
		Expect(contentOut.Close(ctx)).NotTo(HaveOccurred())
		Expect(deltaOut.Close(ctx)).NotTo(HaveOccurred())

		cc, err := rowstream.Read[ContentRecord[int, int, string]]("c", contentStream, rowstream.JSONCodec[ContentRecord[int, int, string]]{})
		Expect(err).NotTo(HaveOccurred())
		contentRows, err := cursor.Collect(cc)
		Expect(err).NotTo(HaveOccurred())

		dc, err := rowstream.Read[SourceUpdate[int, string]]("u", deltaStream, rowstream.JSONCodec[SourceUpdate[int, string]]{})
		Expect(err).NotTo(HaveOccurred())
		deltaRows, err := cursor.Collect(dc)
		Expect(err).NotTo(HaveOccurred())

		return contentRows, deltaRows
	}

	It("adds a brand new target with no prior content", func() {
		content, delta := run(nil, []contentInstruction[int, int, string]{{TargetKey: 1, SourceKey: 10, Value: "a"}}, nil)
		Expect(content).To(Equal([]ContentRecord[int, int, string]{{TargetKey: 1, SourceKey: 10, Value: "a"}}))
		Expect(delta).To(Equal([]SourceUpdate[int, string]{{Type: Update, Key: 1, Value: "a"}}))
	})

	It("errors when a deletion instruction names a pair absent from prior content", func() {
		err := executeContent(ctx, cmp, cursor.Empty[ContentRecord[int, int, string]](),
			cursor.NewSlice([]contentInstruction[int, int, string]{{TargetKey: 1, SourceKey: 10, Deletion: true}}),
			nil, nil, nil)
		Expect(err).To(HaveOccurred())
	})

	It("reports a target as deleted once its last surviving source row is removed", func() {
		content, delta := run(
			[]ContentRecord[int, int, string]{{TargetKey: 1, SourceKey: 10, Value: "a"}},
			[]contentInstruction[int, int, string]{{TargetKey: 1, SourceKey: 10, Deletion: true}},
			nil,
		)
		Expect(content).To(BeEmpty())
		Expect(delta).To(Equal([]SourceUpdate[int, string]{{Type: Delete, Key: 1}}))
	})

	It("re-reports the surviving row of a target as an update, not a delete, when one of several sources is removed", func() {
		content, delta := run(
			[]ContentRecord[int, int, string]{
				{TargetKey: 1, SourceKey: 10, Value: "a"},
				{TargetKey: 1, SourceKey: 20, Value: "b"},
			},
			[]contentInstruction[int, int, string]{{TargetKey: 1, SourceKey: 10, Deletion: true}},
			nil,
		)
		Expect(content).To(Equal([]ContentRecord[int, int, string]{{TargetKey: 1, SourceKey: 20, Value: "b"}}))
		Expect(delta).To(Equal([]SourceUpdate[int, string]{{Type: Update, Key: 1, Value: "b"}}))
	})

	It("leaves an untouched target's content and delta alone", func() {
		content, delta := run(
			[]ContentRecord[int, int, string]{{TargetKey: 1, SourceKey: 10, Value: "a"}},
			nil,
			nil,
		)
		Expect(content).To(Equal([]ContentRecord[int, int, string]{{TargetKey: 1, SourceKey: 10, Value: "a"}}))
		Expect(delta).To(BeEmpty())
	})

	It("lets PreserveKeyValues reuse an exemplar from an untouched sibling row within the same pass", func() {
		preserve := func(newValue string, exemplar *string) string {
			if exemplar != nil {
				return *exemplar
			}
			return newValue
		}
		content, _ := run(
			[]ContentRecord[int, int, string]{{TargetKey: 1, SourceKey: 10, Value: "exemplar"}},
			[]contentInstruction[int, int, string]{{TargetKey: 1, SourceKey: 20, Value: "fresh"}},
			preserve,
		)
		Expect(content).To(Equal([]ContentRecord[int, int, string]{
			{TargetKey: 1, SourceKey: 10, Value: "exemplar"},
			{TargetKey: 1, SourceKey: 20, Value: "exemplar"},
		}))
	})

	It("lets PreserveKeyValues fall back to the new value when no exemplar exists", func() {
		preserve := func(newValue string, exemplar *string) string {
			if exemplar != nil {
				return *exemplar
			}
			return newValue
		}
		content, _ := run(nil, []contentInstruction[int, int, string]{{TargetKey: 1, SourceKey: 10, Value: "fresh"}}, preserve)
		Expect(content).To(Equal([]ContentRecord[int, int, string]{{TargetKey: 1, SourceKey: 10, Value: "fresh"}}))
	})
})
