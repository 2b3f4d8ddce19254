package mcp

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/pkg/retriever"
	testutils "github.com/bookbinderco/stacks/pkg/utils/test"
	"github.com/bookbinderco/stacks/pkg/vector"
)

var _ = Describe("Retrieve tool", func() {
	var (
		server *Server
		index  *testutils.MockIndex
		ctx    context.Context
	)

	BeforeEach(func() {
		logger := zap.NewNop()
		index = &testutils.MockIndex{}
		r := retriever.New(&testutils.MockEmbedder{}, index, logger)

		var err error
		server, err = NewServer(Config{
			Retriever: r,
			Logger:    logger,
		})
		Expect(err).NotTo(HaveOccurred())

		ctx = context.TODO()
	})

	Describe("handleRetrieve", func() {
		It("returns passages and a context string for a query", func() {
			index.Candidates = []vector.Candidate{
				{
					Passage:    vector.Passage{ID: "p-1", Source: "guide.pdf", Text: "relevant text"},
					Similarity: 0.9,
				},
			}

			result, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{
				Query: "what is relevant",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())

			Expect(output.Count).To(Equal(1))
			Expect(output.Passages[0].Source).To(Equal("guide.pdf"))
			Expect(output.Context).To(ContainSubstring("Source: guide.pdf"))
		})

		It("flags invalid queries as tool errors rather than protocol errors", func() {
			result, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{
				Query: "   ",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
			Expect(output.Count).To(BeZero())
		})

		It("flags index failures as tool errors", func() {
			index.FailSearch = true

			result, _, err := server.handleRetrieve(ctx, nil, RetrieveInput{
				Query: "boom",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeTrue())
		})

		It("returns an empty result when nothing matches", func() {
			result, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{
				Query: "nothing indexed",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsError).To(BeFalse())
			Expect(output.Count).To(BeZero())
			Expect(output.Context).To(BeEmpty())
		})
	})
})
