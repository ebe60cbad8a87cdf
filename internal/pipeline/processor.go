// Package pipeline 定义了文档索引的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"studymate-go/internal/chunker"
	"studymate-go/internal/config"
	"studymate-go/internal/index"
	"studymate-go/internal/store"
	"studymate-go/pkg/embedding"
	"studymate-go/pkg/log"
	"studymate-go/pkg/tasks"
)

// Processor 封装了文档索引的所有依赖和逻辑。
// 流程：读取已提取的文本 → 分块 → 批量向量化 → 构建向量索引 → 标记 READY。
type Processor struct {
	docStore        *store.DocumentStore
	embeddingClient embedding.Client
	ragCfg          config.RAGConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(docStore *store.DocumentStore, embeddingClient embedding.Client, ragCfg config.RAGConfig) *Processor {
	return &Processor{
		docStore:        docStore,
		embeddingClient: embeddingClient,
		ragCfg:          ragCfg,
	}
}

// Process 是文档索引的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentProcessingTask) error {
	log.Infof("[Processor] 开始处理文档, FileName: %s, Generation: %d", task.FileName, task.Generation)

	// 1. 从存储读取已提取的文本
	doc, ok := p.docStore.Get(task.FileName)
	if !ok {
		// 文档在任务排队期间被删除，任务作废
		log.Warnf("[Processor] 文档已不存在, 跳过任务, FileName: %s", task.FileName)
		return nil
	}
	if doc.Generation != task.Generation {
		// 同名文件已被替换，旧任务作废
		log.Warnf("[Processor] 文档版本不匹配, 跳过过期任务, FileName: %s, 任务版本: %d, 当前版本: %d",
			task.FileName, task.Generation, doc.Generation)
		return nil
	}
	log.Infof("[Processor] 步骤1: 取到文档文本, 长度: %d 字符", utf8.RuneCountInString(doc.Text))

	// 2. 文本切块
	log.Infof("[Processor] 步骤2: 进行文本分块, chunkSize: %d, chunkOverlap: %d", p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	chunks, err := chunker.Split(doc.Text, p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	if err != nil {
		p.fail(task, fmt.Sprintf("文本分块失败: %v", err))
		return fmt.Errorf("文本分块失败: %w", err)
	}
	if len(chunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 处理中止, FileName: %s", task.FileName)
		p.fail(task, "未生成任何文本分块")
		return errors.New("未生成任何文本分块")
	}
	log.Infof("[Processor] 步骤2: 文本分块完成, 共生成 %d 个分块", len(chunks))

	// 3. 批量向量化
	log.Infof("[Processor] 步骤3: 开始批量向量化, 分块数: %d", len(chunks))
	vectors, err := p.embeddingClient.CreateEmbeddings(ctx, chunks)
	if err != nil {
		log.Errorf("[Processor] 批量向量化失败, FileName: %s, Error: %v", task.FileName, err)
		p.fail(task, fmt.Sprintf("向量化失败: %v", err))
		return fmt.Errorf("批量向量化失败: %w", err)
	}
	log.Infof("[Processor] 步骤3: 向量化完成, 维度: %d", len(vectors[0]))

	// 4. 构建向量索引
	idx := index.NewFlatIndex()
	if err := idx.Build(chunks, vectors); err != nil {
		log.Errorf("[Processor] 构建向量索引失败, FileName: %s, Error: %v", task.FileName, err)
		p.fail(task, fmt.Sprintf("构建向量索引失败: %v", err))
		return fmt.Errorf("构建向量索引失败: %w", err)
	}

	// 5. 标记 READY（版本不匹配时说明文档已被替换，结果丢弃）
	if !p.docStore.SetReady(task.FileName, task.Generation, chunks, idx) {
		log.Warnf("[Processor] 文档在处理期间被替换, 结果已丢弃, FileName: %s", task.FileName)
		return nil
	}

	log.Infof("[Processor] 文档处理成功完成, FileName: %s, 分块数: %d", task.FileName, len(chunks))
	return nil
}

// fail 把失败原因写回存储，版本不匹配时静默丢弃。
func (p *Processor) fail(task tasks.DocumentProcessingTask, reason string) {
	if !p.docStore.SetFailed(task.FileName, task.Generation, reason) {
		log.Warnf("[Processor] 标记失败状态时文档已被替换, FileName: %s", task.FileName)
	}
}
