package handler

import (
	"errors"
	"net/http"

	"studymate-go/internal/service"
	"studymate-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// quizRequest 是 POST /api/generate-quiz 的请求体，字段均可缺省。
type quizRequest struct {
	NumQuestions int    `json:"num_questions"`
	Difficulty   string `json:"difficulty"`
	Language     string `json:"language"`
}

// QuizHandler 负责处理测验生成相关的 API 请求。
type QuizHandler struct {
	quizService service.QuizService
}

// NewQuizHandler 创建一个新的 QuizHandler 实例。
func NewQuizHandler(quizService service.QuizService) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
	}
}

// Generate 处理测验生成请求。
func (h *QuizHandler) Generate(c *gin.Context) {
	req := quizRequest{
		NumQuestions: 5,
		Difficulty:   "medium",
		Language:     "English",
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体格式错误"})
		return
	}

	questions, err := h.quizService.Generate(c.Request.Context(), req.NumQuestions, req.Difficulty, req.Language)
	if err != nil {
		if errors.Is(err, service.ErrNoDocuments) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请先上传文档"})
			return
		}
		log.Errorf("GenerateQuiz: 生成测验失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成测验失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "测验生成成功",
		"data":    gin.H{"questions": questions},
	})
}
