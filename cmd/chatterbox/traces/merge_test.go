package tracescmder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatterbox/pkg/llm"
	"github.com/papercomputeco/chatterbox/pkg/merkle"
)

var _ = Describe("Traces Commands", func() {
	var (
		ctx     context.Context
		tmpDir  string
		srcPath string
		dstPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		srcPath = filepath.Join(tmpDir, "source.db")
		dstPath = filepath.Join(tmpDir, "target.db")
	})

	seed := func(path string, turns ...llm.Turn) {
		s, err := merkle.NewSQLiteStorer(path)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()
		for _, n := range merkle.Chain(nil, "test-model", turns...) {
			Expect(s.Put(ctx, n)).To(Succeed())
		}
	}

	count := func(path string) int {
		s, err := merkle.NewSQLiteStorer(path)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()
		nodes, err := s.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		return len(nodes)
	}

	merge := func(args ...string) string {
		var out bytes.Buffer
		cmd := NewTracesCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"merge", "--into", dstPath}, args...))
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())
		return out.String()
	}

	It("merges turns from source into target", func() {
		seed(srcPath, llm.UserTurn("hello from source"), llm.AssistantTurn("hi back"))
		seed(dstPath, llm.UserTurn("hello from target"))

		out := merge(srcPath)

		Expect(out).To(ContainSubstring("2 new, 0 already existed"))
		Expect(count(dstPath)).To(Equal(3))
	})

	It("deduplicates when merging the same source twice", func() {
		seed(srcPath, llm.UserTurn("dedup test"))

		merge(srcPath)
		out := merge(srcPath)

		Expect(out).To(ContainSubstring("0 new, 1 already existed"))
		Expect(count(dstPath)).To(Equal(1))
	})

	It("merges multiple sources sharing a prefix", func() {
		src2Path := filepath.Join(tmpDir, "source2.db")
		seed(srcPath, llm.UserTurn("What is 2+2?"), llm.AssistantTurn("4"))
		seed(src2Path, llm.UserTurn("What is 2+2?"), llm.AssistantTurn("four"))

		merge(srcPath, src2Path)

		Expect(count(dstPath)).To(Equal(3))
	})

	It("fails on a missing source without creating it", func() {
		missing := filepath.Join(tmpDir, "typo.db")

		cmd := NewTracesCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"merge", "--into", dstPath, missing})

		err := cmd.ExecuteContext(ctx)
		Expect(err).To(MatchError(ContainSubstring("typo.db")))
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())

		_, err = os.Stat(missing)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("requires a target", func() {
		cmd := NewMergeCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{srcPath})
		Expect(cmd.ExecuteContext(ctx)).To(HaveOccurred())
	})

	It("prints stats", func() {
		seed(srcPath, llm.UserTurn("a"), llm.AssistantTurn("b"))

		var out bytes.Buffer
		cmd := NewTracesCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"stats", srcPath})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("2 turns, 1 conversations, 1 branches"))
	})
})
