// Package model 包含了应用的数据模型定义。
package model

import "time"

// DocumentStatus 表示文档在处理流水线中所处的阶段。
type DocumentStatus string

const (
	// StatusProcessing 文档已提取文本，正在切块/向量化/建索引。
	StatusProcessing DocumentStatus = "PROCESSING"
	// StatusReady 索引构建完成，可以提问。
	StatusReady DocumentStatus = "READY"
	// StatusFailed 向量化或建索引失败，需重新上传。
	StatusFailed DocumentStatus = "FAILED"
)

// ChatMessage 代表对话历史中的单条消息。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DocumentInfoDTO 定义了返回给前端的文档列表项结构。
type DocumentInfoDTO struct {
	FileName   string         `json:"fileName"`
	Pages      int            `json:"pages"`
	Characters int            `json:"characters"`
	Status     DocumentStatus `json:"status"`
	Source     string         `json:"source"`
	UploadedAt time.Time      `json:"uploadedAt"`
	Error      string         `json:"error,omitempty"`
}

// UploadResultDTO 定义了上传接口的响应结构。
type UploadResultDTO struct {
	Filename   string `json:"filename"`
	Pages      int    `json:"pages"`
	Characters int    `json:"characters"`
}

// AnswerDTO 定义了问答接口的响应结构。
type AnswerDTO struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// RetrievedChunk 表示一次检索命中的分块及其元信息。
type RetrievedChunk struct {
	FileName string  `json:"fileName"`
	ChunkID  int     `json:"chunkId"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

// DownloadInfoDTO 封装了文件下载链接所需的信息。
type DownloadInfoDTO struct {
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
}
