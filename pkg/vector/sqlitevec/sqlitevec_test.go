package sqlitevec_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/bookbinderco/stacks/pkg/vector"
	"github.com/bookbinderco/stacks/pkg/vector/sqlitevec"
)

func TestSQLiteVec(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLiteVec Suite")
}

func doc(id, source, text string, embedding []float32) vector.Document {
	return vector.Document{
		Passage: vector.Passage{
			ID:     id,
			Source: source,
			Text:   text,
		},
		Embedding: embedding,
	}
}

var _ = Describe("SQLiteVecIndex", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewSQLiteVecIndex", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create an index with an in-memory database", func() {
			idx, err := sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).NotTo(BeNil())
			Expect(idx.Close()).To(Succeed())
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
				DBPath: ":memory:",
			}, logger)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Index interface", func() {
			var _ vector.Index = (*sqlitevec.SQLiteVecIndex)(nil)
		})
	})

	Describe("Add", func() {
		var idx *sqlitevec.SQLiteVecIndex

		BeforeEach(func() {
			var err error
			idx, err = sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(idx.Close()).To(Succeed())
		})

		It("should do nothing when given empty docs", func() {
			err := idx.Add(context.Background(), []vector.Document{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should add a single passage and find it again", func() {
			docs := []vector.Document{
				doc("p-1", "handbook.pdf", "first passage", []float32{0.1, 0.2, 0.3, 0.4}),
			}

			err := idx.Add(context.Background(), docs)
			Expect(err).NotTo(HaveOccurred())

			results, err := idx.Search(context.Background(), []float32{0.1, 0.2, 0.3, 0.4}, 1, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("p-1"))
			Expect(results[0].Source).To(Equal("handbook.pdf"))
			Expect(results[0].Text).To(Equal("first passage"))
		})

		It("should update an existing passage", func() {
			docs := []vector.Document{
				doc("p-1", "v1.md", "old text", []float32{0.1, 0.1, 0.1, 0.1}),
			}
			err := idx.Add(context.Background(), docs)
			Expect(err).NotTo(HaveOccurred())

			updated := []vector.Document{
				doc("p-1", "v2.md", "new text", []float32{0.9, 0.9, 0.9, 0.9}),
			}
			err = idx.Add(context.Background(), updated)
			Expect(err).NotTo(HaveOccurred())

			results, err := idx.Search(context.Background(), []float32{0.9, 0.9, 0.9, 0.9}, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Source).To(Equal("v2.md"))
			Expect(results[0].Text).To(Equal("new text"))
		})

		It("should normalize an empty source to Unknown Source", func() {
			docs := []vector.Document{
				doc("p-1", "", "orphan passage", []float32{0.1, 0.1, 0.1, 0.1}),
			}
			err := idx.Add(context.Background(), docs)
			Expect(err).NotTo(HaveOccurred())

			results, err := idx.Search(context.Background(), []float32{0.1, 0.1, 0.1, 0.1}, 1, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Source).To(Equal(vector.UnknownSource))
		})

		It("should round-trip the page number", func() {
			page := 7
			d := doc("p-1", "manual.pdf", "paged passage", []float32{0.1, 0.1, 0.1, 0.1})
			d.Page = &page

			err := idx.Add(context.Background(), []vector.Document{d})
			Expect(err).NotTo(HaveOccurred())

			results, err := idx.Search(context.Background(), []float32{0.1, 0.1, 0.1, 0.1}, 1, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Page).NotTo(BeNil())
			Expect(*results[0].Page).To(Equal(7))
		})
	})

	Describe("Search", func() {
		var idx *sqlitevec.SQLiteVecIndex

		BeforeEach(func() {
			var err error
			idx, err = sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			docs := []vector.Document{
				doc("p-1", "a.md", "text one", []float32{0.1, 0.1, 0.1, 0.1}),
				doc("p-2", "a.md", "text two", []float32{0.2, 0.2, 0.2, 0.2}),
				doc("p-3", "b.md", "text three", []float32{0.3, 0.3, 0.3, 0.3}),
				doc("p-4", "b.md", "text four", []float32{0.4, 0.4, 0.4, 0.4}),
				doc("p-5", "c.md", "text five", []float32{0.5, 0.5, 0.5, 0.5}),
			}
			err = idx.Add(context.Background(), docs)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(idx.Close()).To(Succeed())
		})

		It("should return the closest passages", func() {
			queryVec := []float32{0.3, 0.3, 0.3, 0.3}
			results, err := idx.Search(context.Background(), queryVec, 3, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("p-3"))
		})

		It("should respect the limit", func() {
			queryVec := []float32{0.3, 0.3, 0.3, 0.3}
			results, err := idx.Search(context.Background(), queryVec, 2, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
		})

		It("should default the limit to 10 when zero or negative", func() {
			queryVec := []float32{0.3, 0.3, 0.3, 0.3}
			results, err := idx.Search(context.Background(), queryVec, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			// Only 5 passages in the index
			Expect(results).To(HaveLen(5))
		})

		It("should return similarities in descending order", func() {
			queryVec := []float32{0.3, 0.3, 0.3, 0.3}
			results, err := idx.Search(context.Background(), queryVec, 5, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(5))

			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Similarity).To(BeNumerically(">=", results[i].Similarity))
			}
		})

		It("should exclude candidates below the score floor", func() {
			// An exact match has distance 0 and similarity 1, so a floor just
			// under 1 keeps only the exact match.
			queryVec := []float32{0.3, 0.3, 0.3, 0.3}
			results, err := idx.Search(context.Background(), queryVec, 5, 0.999)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("p-3"))
		})

		It("should return an empty result when nothing clears the floor", func() {
			queryVec := []float32{100, 100, 100, 100}
			results, err := idx.Search(context.Background(), queryVec, 5, 0.999)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		var idx *sqlitevec.SQLiteVecIndex

		BeforeEach(func() {
			var err error
			idx, err = sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			docs := []vector.Document{
				doc("p-1", "a.md", "one", []float32{0.1, 0.1, 0.1, 0.1}),
				doc("p-2", "a.md", "two", []float32{0.2, 0.2, 0.2, 0.2}),
				doc("p-3", "b.md", "three", []float32{0.3, 0.3, 0.3, 0.3}),
			}
			err = idx.Add(context.Background(), docs)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(idx.Close()).To(Succeed())
		})

		It("should do nothing when given empty IDs", func() {
			err := idx.Delete(context.Background(), []string{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should not error when deleting non-existent IDs", func() {
			err := idx.Delete(context.Background(), []string{"nonexistent"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should remove passages from search results after deletion", func() {
			err := idx.Delete(context.Background(), []string{"p-3"})
			Expect(err).NotTo(HaveOccurred())

			queryVec := []float32{0.3, 0.3, 0.3, 0.3}
			results, err := idx.Search(context.Background(), queryVec, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))

			for _, result := range results {
				Expect(result.ID).NotTo(Equal("p-3"))
			}
		})

		It("should delete multiple passages", func() {
			err := idx.Delete(context.Background(), []string{"p-1", "p-2"})
			Expect(err).NotTo(HaveOccurred())

			queryVec := []float32{0.1, 0.1, 0.1, 0.1}
			results, err := idx.Search(context.Background(), queryVec, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("p-3"))
		})
	})

	Describe("Close", func() {
		It("should close the database connection", func() {
			idx, err := sqlitevec.NewSQLiteVecIndex(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx.Close()).To(Succeed())
		})
	})
})
