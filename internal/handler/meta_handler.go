package handler

import (
	"math"
	"net/http"
	"time"

	"studymate-go/internal/model"
	"studymate-go/internal/store"

	"github.com/gin-gonic/gin"
)

// MetaHandler 负责服务信息、健康检查、语言列表和导出接口。
type MetaHandler struct {
	docStore *store.DocumentStore
}

// NewMetaHandler 创建一个新的 MetaHandler 实例。
func NewMetaHandler(docStore *store.DocumentStore) *MetaHandler {
	return &MetaHandler{docStore: docStore}
}

// Root 返回服务的基本信息。
func (h *MetaHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "StudyMate API",
		"version": "2.0.0",
		"status":  "running",
		"features": []string{
			"AI Chat", "Quiz Generation", "Multi-language",
		},
	})
}

// Health 返回健康状态与当前文档数。
func (h *MetaHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"documents": h.docStore.Count(),
		"languages": len(model.SupportedLanguages),
	})
}

// Languages 返回支持的语言列表。
func (h *MetaHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": model.SupportedLanguages,
	})
}

// ExportChat 把客户端提交的对话消息打包成导出结构。
func (h *MetaHandler) ExportChat(c *gin.Context) {
	var messages []map[string]interface{}
	if err := c.ShouldBindJSON(&messages); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"type":           "chat_history",
		"timestamp":      time.Now().Format(time.RFC3339),
		"messages":       messages,
		"total_messages": len(messages),
	})
}

// ExportQuiz 把客户端提交的测验结果打包成导出结构。
func (h *MetaHandler) ExportQuiz(c *gin.Context) {
	var data map[string]interface{}
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
		return
	}

	score, _ := data["score"].(float64)
	total, _ := data["total"].(float64)
	percentage := 0.0
	if total > 0 {
		percentage = math.Round(score/total*10000) / 100
	}

	c.JSON(http.StatusOK, gin.H{
		"type":       "quiz_results",
		"timestamp":  data["timestamp"],
		"quiz":       data["quiz"],
		"answers":    data["answers"],
		"score":      data["score"],
		"total":      data["total"],
		"percentage": percentage,
		"difficulty": data["difficulty"],
		"language":   data["language"],
	})
}
