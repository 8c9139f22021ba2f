package merkle_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatterbox/pkg/merkle"
)

var _ = Describe("SQLiteStorer", func() {
	Describe("NewSQLiteStorer", func() {
		It("creates a storer with file database", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")

			s, err := merkle.NewSQLiteStorer(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})

		It("keeps nodes across reopen", func() {
			ctx := context.Background()
			dbPath := filepath.Join(GinkgoT().TempDir(), "reopen.db")

			s, err := merkle.NewSQLiteStorer(dbPath)
			Expect(err).NotTo(HaveOccurred())
			node := merkle.NewNode(userBucket("persisted"), nil)
			Expect(s.Put(ctx, node)).To(Succeed())
			Expect(s.Close()).To(Succeed())

			s, err = merkle.NewSQLiteStorer(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			got, err := s.Get(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Bucket.Text).To(Equal("persisted"))
		})
	})

	storerBehaviour(func() merkle.Storer {
		s, err := merkle.NewSQLiteStorer(":memory:")
		Expect(err).NotTo(HaveOccurred())
		return s
	})
})

var _ = Describe("MemoryStorer", func() {
	storerBehaviour(func() merkle.Storer {
		return merkle.NewMemoryStorer()
	})
})

// storerBehaviour registers the tests every Storer implementation must pass.
func storerBehaviour(newStorer func() merkle.Storer) {
	var (
		storer merkle.Storer
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		storer = newStorer()
	})

	AfterEach(func() {
		if storer != nil {
			storer.Close()
		}
	})

	put := func(nodes ...*merkle.Node) {
		for _, n := range nodes {
			Expect(storer.Put(ctx, n)).To(Succeed())
		}
	}

	Describe("Put and Get", func() {
		It("stores and retrieves a node", func() {
			node := merkle.NewNode(userBucket("test content"), nil)
			put(node)

			retrieved, err := storer.Get(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Hash).To(Equal(node.Hash))
			Expect(retrieved.Bucket).To(Equal(node.Bucket))
			Expect(retrieved.ParentHash).To(BeNil())
		})

		It("stores and retrieves a node with parent", func() {
			parent := merkle.NewNode(userBucket("parent"), nil)
			child := merkle.NewNode(userBucket("child"), parent)
			put(parent, child)

			retrieved, err := storer.Get(ctx, child.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.ParentHash).NotTo(BeNil())
			Expect(*retrieved.ParentHash).To(Equal(parent.Hash))
		})

		It("returns ErrNotFound for non-existent hash", func() {
			_, err := storer.Get(ctx, "nonexistent")
			Expect(err).To(MatchError(merkle.ErrNotFound{Hash: "nonexistent"}))
		})

		It("is idempotent for duplicate puts", func() {
			node := merkle.NewNode(userBucket("test"), nil)
			put(node, node)

			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(1))
		})

		It("rejects nil nodes", func() {
			err := storer.Put(ctx, nil)
			Expect(err).To(MatchError(ContainSubstring("nil node")))
		})
	})

	Describe("Has", func() {
		It("reports existing and missing nodes", func() {
			node := merkle.NewNode(userBucket("test"), nil)
			put(node)

			exists, err := storer.Has(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, err = storer.Has(ctx, "nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})

	Describe("GetByParent", func() {
		It("returns children of a parent", func() {
			parent := merkle.NewNode(userBucket("parent"), nil)
			child1 := merkle.NewNode(userBucket("child1"), parent)
			child2 := merkle.NewNode(userBucket("child2"), parent)
			put(parent, child1, child2)

			children, err := storer.GetByParent(ctx, &parent.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(children).To(HaveLen(2))
		})

		It("returns root nodes when parentHash is nil", func() {
			root1 := merkle.NewNode(userBucket("root1"), nil)
			root2 := merkle.NewNode(userBucket("root2"), nil)
			child := merkle.NewNode(userBucket("child"), root1)
			put(root1, root2, child)

			roots, err := storer.GetByParent(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(roots).To(HaveLen(2))

			roots, err = storer.Roots(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(roots).To(HaveLen(2))
		})
	})

	Describe("List", func() {
		It("returns an empty slice for an empty store", func() {
			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(BeEmpty())
		})

		It("returns nodes in insertion order", func() {
			nodes := merkle.Chain(nil, "m", userBucket("a").Turn(), userBucket("b").Turn(), userBucket("c").Turn())
			put(nodes...)

			listed, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(HaveLen(3))
			Expect(listed[0].Bucket.Text).To(Equal("a"))
			Expect(listed[2].Bucket.Text).To(Equal("c"))
		})
	})

	Describe("Leaves", func() {
		It("returns all leaf nodes", func() {
			nodes := merkle.Chain(nil, "m", userBucket("root").Turn(), userBucket("child").Turn(), userBucket("leaf").Turn())
			put(nodes...)

			leaves, err := storer.Leaves(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leaves).To(HaveLen(1))
			Expect(leaves[0].Hash).To(Equal(nodes[2].Hash))
		})

		It("branches on divergent replies", func() {
			parent := merkle.NewNode(userBucket("What is 2+2?"), nil)
			branch1 := merkle.NewNode(userBucket("4"), parent)
			branch2 := merkle.NewNode(userBucket("four"), parent)
			put(parent, branch1, branch2)

			leaves, err := storer.Leaves(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leaves).To(HaveLen(2))
		})
	})

	Describe("Ancestry, Descendants and Depth", func() {
		var nodes []*merkle.Node

		BeforeEach(func() {
			nodes = merkle.Chain(nil, "m", userBucket("root").Turn(), userBucket("child").Turn(), userBucket("grandchild").Turn())
			put(nodes...)
		})

		It("returns path from node to root", func() {
			path, err := storer.Ancestry(ctx, nodes[2].Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(HaveLen(3))
			Expect(path[0].Bucket.Text).To(Equal("grandchild"))
			Expect(path[2].Bucket.Text).To(Equal("root"))
		})

		It("returns path from root to node", func() {
			path, err := storer.Descendants(ctx, nodes[2].Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(HaveLen(3))
			Expect(path[0].Bucket.Text).To(Equal("root"))
			Expect(path[2].Bucket.Text).To(Equal("grandchild"))
		})

		It("computes depth", func() {
			depth, err := storer.Depth(ctx, nodes[0].Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(depth).To(Equal(0))

			depth, err = storer.Depth(ctx, nodes[2].Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(depth).To(Equal(2))
		})

		It("fails for unknown hashes", func() {
			_, err := storer.Ancestry(ctx, "missing")
			Expect(err).To(HaveOccurred())
		})
	})
}
