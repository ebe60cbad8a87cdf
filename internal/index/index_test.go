package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T) *FlatIndex {
	t.Helper()
	idx := NewFlatIndex()
	chunks := []string{"c0", "c1", "c2"}
	vectors := [][]float32{
		{0, 0},
		{1, 0},
		{0, 2},
	}
	require.NoError(t, idx.Build(chunks, vectors))
	return idx
}

func TestFlatIndexBuild(t *testing.T) {
	t.Run("长度不一致报错", func(t *testing.T) {
		idx := NewFlatIndex()
		err := idx.Build([]string{"a"}, [][]float32{{1}, {2}})
		assert.Error(t, err)
	})

	t.Run("维度不一致报错", func(t *testing.T) {
		idx := NewFlatIndex()
		err := idx.Build([]string{"a", "b"}, [][]float32{{1, 2}, {1}})
		assert.Error(t, err)
	})

	t.Run("空集合报错", func(t *testing.T) {
		idx := NewFlatIndex()
		assert.Error(t, idx.Build(nil, nil))
	})

	t.Run("重建丢弃旧状态", func(t *testing.T) {
		idx := buildTestIndex(t)
		require.NoError(t, idx.Build([]string{"x"}, [][]float32{{5, 5}}))
		assert.Equal(t, 1, idx.Size())
		results, err := idx.Search([]float32{5, 5}, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "x", results[0].Text)
	})

	t.Run("相同输入重建结果一致", func(t *testing.T) {
		a := buildTestIndex(t)
		b := buildTestIndex(t)
		ra, err := a.Search([]float32{1, 1}, 3)
		require.NoError(t, err)
		rb, err := b.Search([]float32{1, 1}, 3)
		require.NoError(t, err)
		assert.Equal(t, ra, rb)
	})
}

func TestFlatIndexSearch(t *testing.T) {
	t.Run("未构建返回 ErrNotBuilt", func(t *testing.T) {
		idx := NewFlatIndex()
		_, err := idx.Search([]float32{1, 2}, 3)
		assert.ErrorIs(t, err, ErrNotBuilt)
	})

	t.Run("距离升序返回 k 条", func(t *testing.T) {
		idx := buildTestIndex(t)
		results, err := idx.Search([]float32{0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "c0", results[0].Text)
		assert.Equal(t, "c1", results[1].Text)
		assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
	})

	t.Run("查询等于某分块向量时该分块排第一", func(t *testing.T) {
		idx := buildTestIndex(t)
		results, err := idx.Search([]float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 1, results[0].ChunkID)
		assert.Zero(t, results[0].Distance)
	})

	t.Run("k 超过分块数被收缩", func(t *testing.T) {
		idx := buildTestIndex(t)
		results, err := idx.Search([]float32{0, 0}, 100)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("距离相同按分块顺序排列", func(t *testing.T) {
		idx := NewFlatIndex()
		require.NoError(t, idx.Build(
			[]string{"first", "second", "third"},
			[][]float32{{1, 0}, {-1, 0}, {0, 1}},
		))
		results, err := idx.Search([]float32{0, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, []int{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID})
	})

	t.Run("查询维度不匹配报错", func(t *testing.T) {
		idx := buildTestIndex(t)
		_, err := idx.Search([]float32{1, 2, 3}, 1)
		assert.Error(t, err)
	})
}
