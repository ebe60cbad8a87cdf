package service

import (
	"context"
	"testing"

	"studymate-go/internal/config"
	"studymate-go/internal/index"
	"studymate-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 固定返回原点向量，使分块距离等于其向量的模长。
type fakeEmbedder struct{}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0}, nil
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0}
	}
	return vectors, nil
}

// readyDoc 把一份文档直接推进到 READY 状态。
func readyDoc(t *testing.T, docStore *store.DocumentStore, name string, chunks []string, vectors [][]float32) {
	t.Helper()
	gen := docStore.Put(name, 1, "text of "+name, "upload")
	idx := index.NewFlatIndex()
	require.NoError(t, idx.Build(chunks, vectors))
	require.True(t, docStore.SetReady(name, gen, chunks, idx))
}

func chatConfig() config.RAGConfig {
	return config.RAGConfig{TopK: 2, MaxContextChars: 3000}
}

func TestAskMergesResultsAcrossDocuments(t *testing.T) {
	docStore := store.NewDocumentStore()
	readyDoc(t, docStore, "a.txt", []string{"alpha", "beta"}, [][]float32{{0}, {2}})
	readyDoc(t, docStore, "b.txt", []string{"gamma"}, [][]float32{{1}})

	client := &fakeLLM{response: "the answer"}
	svc := NewChatService(docStore, &fakeEmbedder{}, client, chatConfig())

	result, err := svc.Ask(context.Background(), "what is alpha?", "English")
	require.NoError(t, err)

	assert.Equal(t, "the answer", result.Answer)
	// 全局 top-2：alpha (距离 0) 先于 gamma (距离 1)，beta (距离 2) 被挤出
	assert.Equal(t, []string{"a.txt", "b.txt"}, result.Sources)
	assert.Contains(t, client.lastPrompt, "alpha\n\ngamma")
	assert.NotContains(t, client.lastPrompt, "beta")
	assert.Contains(t, client.lastPrompt, "Question: what is alpha?")
	assert.Contains(t, client.lastPrompt, "Use the following pieces of context")
}

func TestAskTieBreaksByUploadOrder(t *testing.T) {
	docStore := store.NewDocumentStore()
	readyDoc(t, docStore, "first.txt", []string{"from first"}, [][]float32{{1}})
	readyDoc(t, docStore, "second.txt", []string{"from second"}, [][]float32{{1}})

	client := &fakeLLM{response: "ok"}
	svc := NewChatService(docStore, &fakeEmbedder{}, client, chatConfig())

	result, err := svc.Ask(context.Background(), "q", "English")
	require.NoError(t, err)
	assert.Equal(t, []string{"first.txt", "second.txt"}, result.Sources)
}

func TestAskAppendsLanguageInstruction(t *testing.T) {
	docStore := store.NewDocumentStore()
	readyDoc(t, docStore, "a.txt", []string{"alpha"}, [][]float32{{0}})

	client := &fakeLLM{response: "respuesta"}
	svc := NewChatService(docStore, &fakeEmbedder{}, client, chatConfig())

	_, err := svc.Ask(context.Background(), "pregunta", "Spanish")
	require.NoError(t, err)
	assert.Contains(t, client.lastPrompt, "IMPORTANT: Respond in Spanish language.")

	_, err = svc.Ask(context.Background(), "question", "English")
	require.NoError(t, err)
	assert.NotContains(t, client.lastPrompt, "IMPORTANT: Respond in")
}

func TestAskRecordsHistory(t *testing.T) {
	docStore := store.NewDocumentStore()
	readyDoc(t, docStore, "a.txt", []string{"alpha"}, [][]float32{{0}})

	svc := NewChatService(docStore, &fakeEmbedder{}, &fakeLLM{response: "the answer"}, chatConfig())

	_, err := svc.Ask(context.Background(), "the question", "English")
	require.NoError(t, err)

	history := svc.History()
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "the question", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "the answer", history[1].Content)

	svc.ClearHistory()
	assert.Empty(t, svc.History())
}

func TestAskWithoutReadyDocuments(t *testing.T) {
	docStore := store.NewDocumentStore()
	svc := NewChatService(docStore, &fakeEmbedder{}, &fakeLLM{}, chatConfig())

	_, err := svc.Ask(context.Background(), "anything", "English")
	assert.ErrorIs(t, err, ErrNoDocuments)

	// 仍在处理中的文档不参与检索
	docStore.Put("pending.txt", 1, "still processing", "upload")
	_, err = svc.Ask(context.Background(), "anything", "English")
	assert.ErrorIs(t, err, ErrNoDocuments)
}
