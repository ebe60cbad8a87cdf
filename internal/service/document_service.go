// Package service 包含了应用的业务逻辑层。
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"studymate-go/internal/config"
	"studymate-go/internal/model"
	"studymate-go/internal/store"
	"studymate-go/pkg/extract"
	"studymate-go/pkg/kafka"
	"studymate-go/pkg/log"
	"studymate-go/pkg/storage"
	"studymate-go/pkg/tasks"
)

// ErrNoDocuments 表示还没有任何可用的文档。
var ErrNoDocuments = errors.New("尚未上传任何文档")

// DocumentService 定义了文档管理的接口。
type DocumentService interface {
	Upload(ctx context.Context, fileName string, content []byte, source string) (model.UploadResultDTO, error)
	List() []model.DocumentInfoDTO
	Delete(ctx context.Context, fileName string) error
	GenerateDownloadURL(ctx context.Context, fileName string) (model.DownloadInfoDTO, error)
}

type documentService struct {
	docStore *store.DocumentStore
	minioCfg config.MinIOConfig
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(docStore *store.DocumentStore, minioCfg config.MinIOConfig) DocumentService {
	return &documentService{
		docStore: docStore,
		minioCfg: minioCfg,
	}
}

// objectName 返回文件在对象存储中的路径。
func objectName(fileName string) string {
	return fmt.Sprintf("uploads/%s", fileName)
}

// Upload 同步提取文本并登记文档，然后投递索引任务。
// 上传响应需要携带页数和字符数，所以提取在请求内完成；
// 分块、向量化和建索引交给 Kafka 流水线异步处理。
func (s *documentService) Upload(ctx context.Context, fileName string, content []byte, source string) (model.UploadResultDTO, error) {
	log.Infof("[DocumentService] 开始处理上传, FileName: %s, Size: %d, Source: %s", fileName, len(content), source)

	// 1. 同步提取文本
	reader := bytes.NewReader(content)
	text, pages, err := extract.ExtractText(reader, int64(len(content)), fileName)
	if err != nil {
		// 没有可提取文本或类型不支持时不登记文档
		log.Warnf("[DocumentService] 文本提取失败, FileName: %s, Error: %v", fileName, err)
		return model.UploadResultDTO{}, err
	}

	// 2. 保留一份原始文件副本到 MinIO，供下载使用
	contentType := mime.TypeByExtension(filepath.Ext(fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := storage.PutObject(ctx, s.minioCfg.BucketName, objectName(fileName), bytes.NewReader(content), int64(len(content)), contentType); err != nil {
		// 对象存储故障不阻断问答主流程，只是下载链接不可用
		log.Warnf("[DocumentService] 保存原始文件副本失败, FileName: %s, Error: %v", fileName, err)
	}

	// 3. 登记为 PROCESSING 并投递索引任务
	generation := s.docStore.Put(fileName, pages, text, source)
	task := tasks.DocumentProcessingTask{
		FileName:   fileName,
		Generation: generation,
		Source:     source,
	}
	if err := kafka.ProduceDocumentTask(task); err != nil {
		log.Errorf("[DocumentService] 投递索引任务失败, FileName: %s, Error: %v", fileName, err)
		s.docStore.SetFailed(fileName, generation, fmt.Sprintf("投递索引任务失败: %v", err))
		return model.UploadResultDTO{}, fmt.Errorf("投递索引任务失败: %w", err)
	}

	result := model.UploadResultDTO{
		Filename:   fileName,
		Pages:      pages,
		Characters: len([]rune(text)),
	}
	log.Infof("[DocumentService] 上传受理成功, FileName: %s, Pages: %d, Characters: %d", fileName, result.Pages, result.Characters)
	return result, nil
}

// List 按上传顺序返回全部文档信息。
func (s *documentService) List() []model.DocumentInfoDTO {
	return s.docStore.List()
}

// Delete 删除内存中的文档及对象存储中的原始副本。
func (s *documentService) Delete(ctx context.Context, fileName string) error {
	if err := s.docStore.Delete(fileName); err != nil {
		return err
	}
	if err := storage.RemoveObject(ctx, s.minioCfg.BucketName, objectName(fileName)); err != nil {
		// 副本清理失败不影响删除语义
		log.Warnf("[DocumentService] 清理对象存储副本失败, FileName: %s, Error: %v", fileName, err)
	}
	log.Infof("[DocumentService] 文档已删除, FileName: %s", fileName)
	return nil
}

// GenerateDownloadURL 为原始文件副本生成限时下载链接。
func (s *documentService) GenerateDownloadURL(ctx context.Context, fileName string) (model.DownloadInfoDTO, error) {
	if _, ok := s.docStore.Get(fileName); !ok {
		return model.DownloadInfoDTO{}, store.ErrNotFound
	}
	url, err := storage.GetPresignedURL(s.minioCfg.BucketName, objectName(fileName), 15*time.Minute)
	if err != nil {
		return model.DownloadInfoDTO{}, fmt.Errorf("生成下载链接失败: %w", err)
	}
	return model.DownloadInfoDTO{
		FileName:    fileName,
		DownloadURL: url,
	}, nil
}
