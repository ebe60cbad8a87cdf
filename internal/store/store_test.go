package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studymate-go/internal/index"
	"studymate-go/internal/model"
)

func readyIndex(t *testing.T) *index.FlatIndex {
	t.Helper()
	idx := index.NewFlatIndex()
	require.NoError(t, idx.Build([]string{"chunk"}, [][]float32{{1, 2}}))
	return idx
}

func TestDocumentStoreLifecycle(t *testing.T) {
	s := NewDocumentStore()

	gen := s.Put("notes.pdf", 3, "hello world", "upload")
	doc, ok := s.Get("notes.pdf")
	require.True(t, ok)
	assert.Equal(t, model.StatusProcessing, doc.Status)
	assert.Equal(t, 3, doc.Pages)
	assert.Equal(t, 11, doc.Characters)

	ok = s.SetReady("notes.pdf", gen, []string{"hello world"}, readyIndex(t))
	require.True(t, ok)
	doc, _ = s.Get("notes.pdf")
	assert.Equal(t, model.StatusReady, doc.Status)
	require.NotNil(t, doc.Index)
	assert.Equal(t, 1, doc.Index.Size())

	require.NoError(t, s.Delete("notes.pdf"))
	_, ok = s.Get("notes.pdf")
	assert.False(t, ok)
	assert.ErrorIs(t, s.Delete("notes.pdf"), ErrNotFound)
}

func TestDocumentStoreReplace(t *testing.T) {
	s := NewDocumentStore()

	gen1 := s.Put("a.pdf", 1, "first version", "upload")
	s.AppendExchange("q", "a")
	require.Len(t, s.History(), 2)

	// 同名重新上传：历史清空，旧一代的流水线结果被丢弃
	gen2 := s.Put("a.pdf", 2, "second version", "upload")
	assert.Greater(t, gen2, gen1)
	assert.Empty(t, s.History())

	assert.False(t, s.SetReady("a.pdf", gen1, []string{"first version"}, readyIndex(t)))
	doc, _ := s.Get("a.pdf")
	assert.Equal(t, model.StatusProcessing, doc.Status)

	assert.True(t, s.SetReady("a.pdf", gen2, []string{"second version"}, readyIndex(t)))
	doc, _ = s.Get("a.pdf")
	assert.Equal(t, model.StatusReady, doc.Status)
	assert.Equal(t, 1, s.Count())
}

func TestDocumentStoreFailed(t *testing.T) {
	s := NewDocumentStore()
	gen := s.Put("a.pdf", 1, "text", "upload")
	require.True(t, s.SetFailed("a.pdf", gen, "向量化失败"))
	doc, _ := s.Get("a.pdf")
	assert.Equal(t, model.StatusFailed, doc.Status)
	assert.Equal(t, "向量化失败", doc.Err)
	assert.Empty(t, s.ReadyDocuments())
}

func TestDocumentStoreListOrder(t *testing.T) {
	s := NewDocumentStore()
	s.Put("b.pdf", 1, "b", "upload")
	s.Put("a.pdf", 1, "a", "upload")
	s.Put("c.pdf", 1, "c", "seed")

	infos := s.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "b.pdf", infos[0].FileName)
	assert.Equal(t, "a.pdf", infos[1].FileName)
	assert.Equal(t, "c.pdf", infos[2].FileName)
	assert.Equal(t, "seed", infos[2].Source)

	// 重新上传不改变原有位置
	s.Put("b.pdf", 2, "b2", "upload")
	infos = s.List()
	assert.Equal(t, "b.pdf", infos[0].FileName)
}

func TestDocumentStoreAllText(t *testing.T) {
	s := NewDocumentStore()
	s.Put("a.txt", 1, "aaaa", "upload")
	s.Put("b.txt", 1, "bbbb", "upload")

	assert.Equal(t, "aaaa\n\nbbbb", s.AllText(0))
	assert.Equal(t, "aaaa\n", s.AllText(5))
}

func TestDocumentStoreHistoryCap(t *testing.T) {
	s := NewDocumentStore()
	s.Put("a.txt", 1, "a", "upload")
	for i := 0; i < 15; i++ {
		s.AppendExchange("q", "a")
	}
	h := s.History()
	assert.Len(t, h, 20)

	s.ClearHistory()
	assert.Empty(t, s.History())
}
