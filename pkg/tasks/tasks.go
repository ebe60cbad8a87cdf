// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentProcessingTask represents the data structure for a document indexing job.
// Generation 用于识别任务对应的文档版本：同名文件被替换后，
// 旧任务的 Generation 与存储中的不一致，处理结果会被丢弃。
type DocumentProcessingTask struct {
	FileName   string `json:"file_name"`
	Generation uint64 `json:"generation"`
	Source     string `json:"source"`
}
