// Package store 实现了文档与对话历史的内存存储。
// 它取代了把文档存在包级全局变量里的做法：每个服务器实例持有一个
// DocumentStore，并显式注入到各个 service 中。
package store

import (
	"errors"
	"sync"
	"time"

	"studymate-go/internal/index"
	"studymate-go/internal/model"
)

// ErrNotFound 表示按文件名找不到对应文档。
var ErrNotFound = errors.New("文档不存在")

// 对话历史只保留最近 20 条消息。
const maxHistoryMessages = 20

// Document 表示一份已上传文档的完整内存状态。
// 同名文件重新上传时整体替换，Generation 随之递增。
type Document struct {
	Name       string
	Pages      int
	Text       string
	Characters int
	Source     string
	Status     model.DocumentStatus
	Generation uint64
	UploadedAt time.Time
	Err        string

	Chunks []string
	Index  *index.FlatIndex
}

// DocumentStore 按文件名管理文档，并持有当前的对话历史。
// 所有方法并发安全；流水线结果通过 Generation 做"最后写入者获胜"。
type DocumentStore struct {
	mu      sync.RWMutex
	docs    map[string]*Document
	order   []string // 文件名按上传先后排列
	nextGen uint64
	history []model.ChatMessage
}

// NewDocumentStore 创建一个空的 DocumentStore。
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*Document)}
}

// Put 存入一份新提取的文档并将其置为 PROCESSING 状态。
// 同名文档被整体替换；对话历史无条件清空。返回本次的 Generation。
func (s *DocumentStore) Put(name string, pages int, text string, source string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextGen++
	if _, exists := s.docs[name]; !exists {
		s.order = append(s.order, name)
	}
	s.docs[name] = &Document{
		Name:       name,
		Pages:      pages,
		Text:       text,
		Characters: len([]rune(text)),
		Source:     source,
		Status:     model.StatusProcessing,
		Generation: s.nextGen,
		UploadedAt: time.Now(),
	}
	// 处理新文档时对话历史不再对应当前语料，直接清空
	s.history = nil
	return s.nextGen
}

// Get 返回指定文档的浅拷贝（Index 指针共享，FlatIndex 自身并发安全）。
func (s *DocumentStore) Get(name string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[name]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// SetReady 在分块与索引构建完成后把文档置为 READY。
// 若文档已被删除或被更新一代替换（Generation 不匹配），结果被丢弃并返回 false。
func (s *DocumentStore) SetReady(name string, generation uint64, chunks []string, idx *index.FlatIndex) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok || doc.Generation != generation {
		return false
	}
	doc.Chunks = chunks
	doc.Index = idx
	doc.Status = model.StatusReady
	doc.Err = ""
	return true
}

// SetFailed 标记文档处理失败，保留错误信息供前端展示。
// 同样遵循 Generation 匹配规则。
func (s *DocumentStore) SetFailed(name string, generation uint64, errMsg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok || doc.Generation != generation {
		return false
	}
	doc.Status = model.StatusFailed
	doc.Err = errMsg
	return true
}

// Delete 删除指定文档。不存在时返回 ErrNotFound。
func (s *DocumentStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[name]; !ok {
		return ErrNotFound
	}
	delete(s.docs, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List 按上传顺序返回所有文档的展示信息。
func (s *DocumentStore) List() []model.DocumentInfoDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]model.DocumentInfoDTO, 0, len(s.order))
	for _, name := range s.order {
		doc := s.docs[name]
		infos = append(infos, model.DocumentInfoDTO{
			FileName:   doc.Name,
			Pages:      doc.Pages,
			Characters: doc.Characters,
			Status:     doc.Status,
			Source:     doc.Source,
			UploadedAt: doc.UploadedAt,
			Error:      doc.Err,
		})
	}
	return infos
}

// ReadyDocuments 按上传顺序返回所有 READY 状态的文档。
func (s *DocumentStore) ReadyDocuments() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []Document
	for _, name := range s.order {
		doc := s.docs[name]
		if doc.Status == model.StatusReady {
			docs = append(docs, *doc)
		}
	}
	return docs
}

// AllText 按上传顺序把所有文档文本用空行拼接，最多返回 limit 个字符。
// limit <= 0 表示不截断。
func (s *DocumentStore) AllText(limit int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var combined string
	for i, name := range s.order {
		if i > 0 {
			combined += "\n\n"
		}
		combined += s.docs[name].Text
	}
	if limit > 0 {
		runes := []rune(combined)
		if len(runes) > limit {
			return string(runes[:limit])
		}
	}
	return combined
}

// Count 返回当前文档数量。
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// AppendExchange 把一轮问答追加到对话历史，超出上限时丢弃最早的消息。
func (s *DocumentStore) AppendExchange(question, answer string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history,
		model.ChatMessage{Role: "user", Content: question, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: answer, Timestamp: now},
	)
	if len(s.history) > maxHistoryMessages {
		s.history = s.history[len(s.history)-maxHistoryMessages:]
	}
}

// History 返回对话历史的拷贝。
func (s *DocumentStore) History() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory 清空对话历史。
func (s *DocumentStore) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
