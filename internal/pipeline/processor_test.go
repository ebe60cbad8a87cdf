package pipeline

import (
	"context"
	"errors"
	"testing"

	"studymate-go/internal/config"
	"studymate-go/internal/model"
	"studymate-go/internal/store"
	"studymate-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 返回确定性向量，便于断言索引内容。
type fakeEmbedder struct {
	calls int
	fail  bool
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("embedding backend unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len([]rune(text))), float32(i)}
	}
	return vectors, nil
}

func ragConfig() config.RAGConfig {
	return config.RAGConfig{ChunkSize: 4, ChunkOverlap: 1, TopK: 3}
}

func TestProcessMarksDocumentReady(t *testing.T) {
	docStore := store.NewDocumentStore()
	gen := docStore.Put("notes.txt", 1, "ABCDEFGHIJ", "upload")

	embedder := &fakeEmbedder{}
	p := NewProcessor(docStore, embedder, ragConfig())

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{FileName: "notes.txt", Generation: gen})
	require.NoError(t, err)

	doc, ok := docStore.Get("notes.txt")
	require.True(t, ok)
	assert.Equal(t, model.StatusReady, doc.Status)
	assert.Equal(t, []string{"ABCD", "DEFG", "GHIJ"}, doc.Chunks)
	require.NotNil(t, doc.Index)
	assert.Equal(t, 3, doc.Index.Size())
	// 分块在一次批量请求中完成向量化
	assert.Equal(t, 1, embedder.calls)
}

func TestProcessSkipsStaleGeneration(t *testing.T) {
	docStore := store.NewDocumentStore()
	oldGen := docStore.Put("notes.txt", 1, "旧版本内容", "upload")
	docStore.Put("notes.txt", 1, "新版本内容", "upload")

	embedder := &fakeEmbedder{}
	p := NewProcessor(docStore, embedder, ragConfig())

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{FileName: "notes.txt", Generation: oldGen})
	require.NoError(t, err)

	// 过期任务不应触发向量化，文档仍在等待新任务处理
	assert.Equal(t, 0, embedder.calls)
	doc, ok := docStore.Get("notes.txt")
	require.True(t, ok)
	assert.Equal(t, model.StatusProcessing, doc.Status)
}

func TestProcessSkipsDeletedDocument(t *testing.T) {
	docStore := store.NewDocumentStore()
	p := NewProcessor(docStore, &fakeEmbedder{}, ragConfig())

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{FileName: "gone.txt", Generation: 1})
	assert.NoError(t, err)
}

func TestProcessEmbeddingFailureMarksFailed(t *testing.T) {
	docStore := store.NewDocumentStore()
	gen := docStore.Put("notes.txt", 1, "ABCDEFGHIJ", "upload")

	p := NewProcessor(docStore, &fakeEmbedder{fail: true}, ragConfig())

	err := p.Process(context.Background(), tasks.DocumentProcessingTask{FileName: "notes.txt", Generation: gen})
	require.Error(t, err)

	doc, ok := docStore.Get("notes.txt")
	require.True(t, ok)
	assert.Equal(t, model.StatusFailed, doc.Status)
	assert.Contains(t, doc.Err, "向量化失败")
}
