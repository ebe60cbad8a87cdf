// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"io"
	"net/http"

	"studymate-go/internal/service"
	"studymate-go/internal/store"
	"studymate-go/pkg/extract"
	"studymate-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理所有与文档管理相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
	}
}

// Upload 处理文档上传请求：同步提取文本并受理异步索引。
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("Upload: 打开上传文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("Upload: 读取上传文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}

	result, err := h.docService.Upload(c.Request.Context(), fileHeader.Filename, content, "upload")
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrNoText):
			c.JSON(http.StatusBadRequest, gin.H{"error": "文档中没有可提取的文本"})
		case errors.Is(err, extract.ErrUnsupported):
			c.JSON(http.StatusBadRequest, gin.H{"error": "不支持的文件类型"})
		default:
			log.Errorf("Upload: 处理上传失败, file: %s, err: %v", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "文档处理失败"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "文档上传成功",
		"data":    result,
	})
}

// List 处理获取文档列表的请求。
func (h *DocumentHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取文档列表成功",
		"data":    h.docService.List(),
	})
}

// Delete 处理删除文档的请求。
func (h *DocumentHandler) Delete(c *gin.Context) {
	fileName := c.Param("filename")
	if fileName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文件名"})
		return
	}

	if err := h.docService.Delete(c.Request.Context(), fileName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文档不存在"})
			return
		}
		log.Errorf("Delete: 删除文档失败, file: %s, err: %v", fileName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除文档失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "文档删除成功",
	})
}

// GenerateDownloadURL 处理生成文件下载链接的请求。
func (h *DocumentHandler) GenerateDownloadURL(c *gin.Context) {
	fileName := c.Query("fileName")
	if fileName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文件名"})
		return
	}

	downloadInfo, err := h.docService.GenerateDownloadURL(c.Request.Context(), fileName)
	if err != nil {
		log.Warnf("GenerateDownloadURL: failed for file %s, err: %v", fileName, err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "文件下载链接生成成功",
		"data":    downloadInfo,
	})
}
