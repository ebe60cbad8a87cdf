// Package index 提供了基于欧氏距离的内存向量索引。
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// ErrNotBuilt 表示索引尚未构建（或构建时没有任何分块）。
// 调用方依赖该错误区分"没有文档"与"没有命中"。
var ErrNotBuilt = errors.New("向量索引尚未构建")

// Result 表示一次最近邻检索的单条命中。
type Result struct {
	ChunkID  int     // 分块在原始顺序中的下标
	Text     string  // 分块文本
	Distance float64 // 与查询向量的欧氏距离
}

// FlatIndex 是一个精确暴力检索的向量索引。
// 每次 Build 都会整体替换旧状态，不支持增量更新或单条删除。
type FlatIndex struct {
	mu      sync.RWMutex
	dim     int
	chunks  []string
	vectors [][]float32
}

// NewFlatIndex 创建一个空索引。
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// Build 用给定的分块和向量重建索引，丢弃所有旧状态。
// 要求分块与向量一一对应，且所有向量维度一致。
func (x *FlatIndex) Build(chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("分块数与向量数不一致: %d != %d", len(chunks), len(vectors))
	}
	if len(vectors) == 0 {
		return errors.New("不能用空的分块集合构建索引")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return errors.New("向量维度不能为 0")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("向量 %d 维度不一致: %d != %d", i, len(v), dim)
		}
	}

	// 复制一份，避免调用方后续修改切片影响索引内容
	cs := make([]string, len(chunks))
	copy(cs, chunks)
	vs := make([][]float32, len(vectors))
	for i, v := range vectors {
		vc := make([]float32, len(v))
		copy(vc, v)
		vs[i] = vc
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.dim = dim
	x.chunks = cs
	x.vectors = vs
	return nil
}

// Search 返回与查询向量欧氏距离最小的 k 个分块，距离升序排列，
// 距离相同时按原始分块顺序排列。k 会被收缩到索引内分块数。
// 索引未构建时返回 ErrNotBuilt。
func (x *FlatIndex) Search(query []float32, k int) ([]Result, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.vectors) == 0 {
		return nil, ErrNotBuilt
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("查询向量维度不匹配: %d != %d", len(query), x.dim)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k 必须为正数, 当前为 %d", k)
	}
	if k > len(x.vectors) {
		k = len(x.vectors)
	}

	results := make([]Result, len(x.vectors))
	for i, v := range x.vectors {
		results[i] = Result{
			ChunkID:  i,
			Text:     x.chunks[i],
			Distance: euclidean(query, v),
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	return results[:k], nil
}

// Size 返回索引内的分块数。
func (x *FlatIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Dimension 返回索引的向量维度，未构建时为 0。
func (x *FlatIndex) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dim
}

// euclidean 计算两个向量的欧氏距离。
func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
