package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"studymate-go/internal/config"
	"studymate-go/internal/store"
	"studymate-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM 返回预设的回答，或模拟调用失败。
type fakeLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, writer llm.MessageWriter) error {
	return errors.New("not implemented")
}

func quizStore(t *testing.T) *store.DocumentStore {
	t.Helper()
	docStore := store.NewDocumentStore()
	docStore.Put("notes.txt", 1,
		"Photosynthesis converts light energy into chemical energy. "+
			"Chlorophyll absorbs mostly blue and red light from the spectrum. "+
			"Short. "+
			"The Calvin cycle fixes carbon dioxide into glucose molecules.",
		"upload")
	return docStore
}

func TestGenerateQuizFromModelResponse(t *testing.T) {
	validJSON := `Here are your questions:
[
  {"question": "What does photosynthesis convert?", "options": {"A": "Light energy", "B": "Sound", "C": "Heat", "D": "Mass"}, "correct": "A"},
  {"question": "What absorbs light?", "options": {"A": "Water", "B": "Chlorophyll", "C": "Oxygen", "D": "Glucose"}, "correct": "B"},
  {"question": "Incomplete question", "options": {"A": "", "B": "x", "C": "y", "D": "z"}, "correct": "A"}
]`
	client := &fakeLLM{response: validJSON}
	svc := NewQuizService(quizStore(t), client, config.RAGConfig{QuizContextChars: 2500})

	questions, err := svc.Generate(context.Background(), 5, "medium", "English")
	require.NoError(t, err)

	// 字段不全的题目被丢弃
	require.Len(t, questions, 2)
	assert.Equal(t, "What does photosynthesis convert?", questions[0].Question)
	assert.Equal(t, "B", questions[1].Correct)
	assert.Contains(t, client.lastPrompt, "moderately challenging")
}

func TestGenerateQuizTruncatesToRequestedCount(t *testing.T) {
	var items []string
	for i := 0; i < 6; i++ {
		items = append(items, fmt.Sprintf(
			`{"question": "Q%d?", "options": {"A": "a", "B": "b", "C": "c", "D": "d"}, "correct": "A"}`, i))
	}
	client := &fakeLLM{response: "[" + strings.Join(items, ",") + "]"}
	svc := NewQuizService(quizStore(t), client, config.RAGConfig{QuizContextChars: 2500})

	questions, err := svc.Generate(context.Background(), 3, "hard", "English")
	require.NoError(t, err)
	assert.Len(t, questions, 3)
	assert.Contains(t, client.lastPrompt, "deep analysis")
}

func TestGenerateQuizFallbackOnMalformedJSON(t *testing.T) {
	client := &fakeLLM{response: "I cannot generate a quiz right now."}
	svc := NewQuizService(quizStore(t), client, config.RAGConfig{QuizContextChars: 2500})

	questions, err := svc.Generate(context.Background(), 5, "medium", "English")
	require.NoError(t, err)

	// 上下文里有 3 个超过 20 字符的句子
	require.Len(t, questions, 3)
	for i, q := range questions {
		assert.Equal(t, fmt.Sprintf("Based on the document, which statement is accurate? (Question %d)", i+1), q.Question)
		assert.Equal(t, "A", q.Correct)
		assert.Equal(t, "This information is not in the document", q.Options.B)
	}
	assert.Equal(t, "Photosynthesis converts light energy into chemical energy", questions[0].Options.A)
}

func TestGenerateQuizFallbackOnModelError(t *testing.T) {
	client := &fakeLLM{err: errors.New("llm unavailable")}
	svc := NewQuizService(quizStore(t), client, config.RAGConfig{QuizContextChars: 2500})

	questions, err := svc.Generate(context.Background(), 2, "easy", "English")
	require.NoError(t, err)
	assert.Len(t, questions, 2)
	for _, q := range questions {
		assert.Equal(t, "A", q.Correct)
	}
}

func TestGenerateQuizTruncatesLongFallbackOption(t *testing.T) {
	docStore := store.NewDocumentStore()
	long := strings.Repeat("a", 150)
	docStore.Put("long.txt", 1, long+".", "upload")

	client := &fakeLLM{response: "not json"}
	svc := NewQuizService(docStore, client, config.RAGConfig{QuizContextChars: 2500})

	questions, err := svc.Generate(context.Background(), 1, "medium", "English")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, strings.Repeat("a", 100)+"...", questions[0].Options.A)
}

func TestGenerateQuizNoDocuments(t *testing.T) {
	svc := NewQuizService(store.NewDocumentStore(), &fakeLLM{}, config.RAGConfig{QuizContextChars: 2500})

	_, err := svc.Generate(context.Background(), 5, "medium", "English")
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestGenerateQuizUnknownDifficultyDefaultsToMedium(t *testing.T) {
	client := &fakeLLM{response: "not json"}
	svc := NewQuizService(quizStore(t), client, config.RAGConfig{QuizContextChars: 2500})

	_, err := svc.Generate(context.Background(), 1, "impossible", "English")
	require.NoError(t, err)
	assert.Contains(t, client.lastPrompt, "moderately challenging")
	assert.Contains(t, client.lastPrompt, "Difficulty level: impossible")
}
