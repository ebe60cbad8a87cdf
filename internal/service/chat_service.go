package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"studymate-go/internal/config"
	"studymate-go/internal/index"
	"studymate-go/internal/model"
	"studymate-go/internal/store"
	"studymate-go/pkg/embedding"
	"studymate-go/pkg/llm"
	"studymate-go/pkg/log"

	"github.com/gorilla/websocket"
)

// answerPromptTemplate 是问答 prompt 的固定模板，检索到的分块按顺序
// 以空行分隔拼入 context。
const answerPromptTemplate = "Use the following pieces of context to answer the question at the end.\nContext:\n%s\n\nQuestion: %s\nAnswer:"

// languageSuffix 追加在 prompt 末尾，要求模型用指定语言作答。
const languageSuffix = "\n\nIMPORTANT: Respond in %s language."

// ChatService 定义了文档问答的接口。
type ChatService interface {
	Ask(ctx context.Context, question, language string) (model.AnswerDTO, error)
	StreamResponse(ctx context.Context, question, language string, ws *websocket.Conn, shouldStop func() bool) error
	History() []model.ChatMessage
	ClearHistory()
}

type chatService struct {
	docStore        *store.DocumentStore
	embeddingClient embedding.Client
	llmClient       llm.Client
	ragCfg          config.RAGConfig
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(docStore *store.DocumentStore, embeddingClient embedding.Client, llmClient llm.Client, ragCfg config.RAGConfig) ChatService {
	return &chatService{
		docStore:        docStore,
		embeddingClient: embeddingClient,
		llmClient:       llmClient,
		ragCfg:          ragCfg,
	}
}

// Ask 执行完整的检索增强问答流程并记录对话历史。
func (s *chatService) Ask(ctx context.Context, question, language string) (model.AnswerDTO, error) {
	chunks, err := s.retrieve(ctx, question)
	if err != nil {
		return model.AnswerDTO{}, err
	}

	prompt := s.buildPrompt(chunks, question, language)
	answer, err := s.llmClient.Generate(ctx, prompt)
	if err != nil {
		return model.AnswerDTO{}, fmt.Errorf("生成回答失败: %w", err)
	}

	s.docStore.AppendExchange(question, answer)

	return model.AnswerDTO{
		Answer:  answer,
		Sources: sourceNames(chunks),
	}, nil
}

// retrieve 把问题向量化后在所有 READY 文档的索引中检索，
// 按 (距离, 上传顺序, 分块顺序) 合并出全局 top-k。
func (s *chatService) retrieve(ctx context.Context, question string) ([]model.RetrievedChunk, error) {
	ready := s.docStore.ReadyDocuments()
	if len(ready) == 0 {
		return nil, ErrNoDocuments
	}

	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("问题向量化失败: %w", err)
	}

	type candidate struct {
		docIdx int
		chunk  model.RetrievedChunk
	}
	var candidates []candidate
	for docIdx, doc := range ready {
		results, err := doc.Index.Search(queryVector, s.ragCfg.TopK)
		if err != nil {
			if errors.Is(err, index.ErrNotBuilt) {
				continue
			}
			return nil, fmt.Errorf("检索文档 %s 失败: %w", doc.Name, err)
		}
		for _, r := range results {
			candidates = append(candidates, candidate{
				docIdx: docIdx,
				chunk: model.RetrievedChunk{
					FileName: doc.Name,
					ChunkID:  r.ChunkID,
					Text:     r.Text,
					Distance: r.Distance,
				},
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].chunk.Distance != candidates[j].chunk.Distance {
			return candidates[i].chunk.Distance < candidates[j].chunk.Distance
		}
		if candidates[i].docIdx != candidates[j].docIdx {
			return candidates[i].docIdx < candidates[j].docIdx
		}
		return candidates[i].chunk.ChunkID < candidates[j].chunk.ChunkID
	})

	if len(candidates) > s.ragCfg.TopK {
		candidates = candidates[:s.ragCfg.TopK]
	}
	chunks := make([]model.RetrievedChunk, len(candidates))
	for i, c := range candidates {
		chunks[i] = c.chunk
	}
	log.Infof("[ChatService] 检索完成, 文档数: %d, 命中分块: %d", len(ready), len(chunks))
	return chunks, nil
}

// buildPrompt 用固定模板拼装 prompt，context 超长时按字符截断。
func (s *chatService) buildPrompt(chunks []model.RetrievedChunk, question, language string) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	contextText := strings.Join(texts, "\n\n")
	if runes := []rune(contextText); len(runes) > s.ragCfg.MaxContextChars {
		contextText = string(runes[:s.ragCfg.MaxContextChars])
	}

	prompt := fmt.Sprintf(answerPromptTemplate, contextText, question)
	if language != "" && language != "English" {
		prompt += fmt.Sprintf(languageSuffix, language)
	}
	return prompt
}

// sourceNames 按检索顺序返回去重后的来源文件名。
func sourceNames(chunks []model.RetrievedChunk) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, c := range chunks {
		if !seen[c.FileName] {
			seen[c.FileName] = true
			sources = append(sources, c.FileName)
		}
	}
	return sources
}

// History 返回当前的对话历史。
func (s *chatService) History() []model.ChatMessage {
	return s.docStore.History()
}

// ClearHistory 清空对话历史。
func (s *chatService) ClearHistory() {
	s.docStore.ClearHistory()
}

// StreamResponse 协调 RAG 流程并通过 WebSocket 流式传输回答。
func (s *chatService) StreamResponse(ctx context.Context, question, language string, ws *websocket.Conn, shouldStop func() bool) error {
	chunks, err := s.retrieve(ctx, question)
	if err != nil {
		return err
	}

	// system 消息承载检索上下文，历史与新问题按角色顺序排列
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	contextText := strings.Join(texts, "\n\n")
	if runes := []rune(contextText); len(runes) > s.ragCfg.MaxContextChars {
		contextText = string(runes[:s.ragCfg.MaxContextChars])
	}
	systemMsg := fmt.Sprintf("Use the following pieces of context to answer the question at the end.\nContext:\n%s", contextText)
	if language != "" && language != "English" {
		systemMsg += fmt.Sprintf(languageSuffix, language)
	}

	messages := []llm.Message{{Role: "system", Content: systemMsg}}
	for _, m := range s.docStore.History() {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: question})

	// 拦截 websocket writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder, shouldStop: shouldStop}

	if err := s.llmClient.StreamChatMessages(ctx, messages, interceptor); err != nil {
		return err
	}

	// 发送完成通知并记录历史
	sendCompletion(ws)
	if fullAnswer := answerBuilder.String(); len(fullAnswer) > 0 {
		s.docStore.AppendExchange(question, fullAnswer)
	}
	return nil
}

// wsWriterInterceptor 是对 websocket.Conn 的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn       *websocket.Conn
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(ws *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"message":   "响应已完成",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
