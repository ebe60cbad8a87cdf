package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"studymate-go/internal/service"
	"studymate-go/pkg/log"
	"studymate-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// askRequest 是 POST /api/ask 的请求体。
type askRequest struct {
	Question string `json:"question" binding:"required"`
	Language string `json:"language"`
}

// ChatHandler 负责处理问答请求与 WebSocket 聊天连接。
type ChatHandler struct {
	chatService   service.ChatService
	jwtManager    *token.JWTManager
	stopToken     string
	stopTokenLock sync.Mutex
	// 每连接停止标志
	stopFlags sync.Map // key: session pointer string, value: bool
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		jwtManager:  jwtManager,
	}
}

// Ask 处理一次完整的文档问答请求。
func (h *ChatHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少问题内容"})
		return
	}

	answer, err := h.chatService.Ask(c.Request.Context(), req.Question, req.Language)
	if err != nil {
		if errors.Is(err, service.ErrNoDocuments) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请先上传文档"})
			return
		}
		log.Errorf("Ask: 处理问答失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI服务暂时不可用，请稍后重试"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "问答成功",
		"data":    answer,
	})
}

// History 返回当前的对话历史。
func (h *ChatHandler) History(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取对话历史成功",
		"data":    h.chatService.History(),
	})
}

// ClearHistory 清空对话历史。
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	h.chatService.ClearHistory()
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "对话历史已清空",
	})
}

// GetWebsocketToken 签发一张用于建立 WebSocket 连接的临时票据。
func (h *ChatHandler) GetWebsocketToken(c *gin.Context) {
	sessionID := token.GenerateRandomString(16)
	ticket, err := h.jwtManager.GenerateTicket(sessionID)
	if err != nil {
		log.Errorf("GetWebsocketToken: 签发票据失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "签发连接票据失败"})
		return
	}

	// 同时轮换停止令牌；真实的多实例部署应把它放进 Redis
	h.stopTokenLock.Lock()
	h.stopToken = "WSS_STOP_CMD_" + token.GenerateRandomString(16)
	stopToken := h.stopToken
	h.stopTokenLock.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"token": ticket, "cmdToken": stopToken},
	})
}

// Handle 处理一个传入的 WebSocket 连接。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyTicket(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立, session: %s", claims.SessionID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}
		log.Infof("收到 WebSocket 消息: %s", string(message))

		// JSON 停止指令: {"type":"stop","_internal_cmd_token":"..."}
		if h.handleStopCommand(conn, message) {
			continue
		}

		// 解析 {"question":"...","language":"..."}，纯文本消息按英文问题处理
		question := string(message)
		language := ""
		var payload askRequest
		if len(message) > 0 && message[0] == '{' {
			if err := json.Unmarshal(message, &payload); err == nil && payload.Question != "" {
				question = payload.Question
				language = payload.Language
			}
		}

		// 调用 ChatService 处理完整的 RAG 和流式逻辑
		shouldStop := func() bool {
			v, ok := h.stopFlags.Load(sessionKey(conn))
			return ok && v.(bool)
		}
		// 清除旧标志
		h.stopFlags.Delete(sessionKey(conn))
		err = h.chatService.StreamResponse(c.Request.Context(), question, language, conn, shouldStop)
		if err != nil {
			log.Errorf("处理流式响应失败: %v", err)
			// 统一 JSON 错误
			errResp := map[string]string{"error": "AI服务暂时不可用，请稍后重试"}
			b, _ := json.Marshal(errResp)
			conn.WriteMessage(websocket.TextMessage, b)
			// 错误时也发送 completion 通知
			resp := map[string]interface{}{
				"type":      "completion",
				"status":    "finished",
				"message":   "响应已完成",
				"timestamp": time.Now().UnixMilli(),
				"date":      time.Now().Format("2006-01-02T15:04:05"),
			}
			cb, _ := json.Marshal(resp)
			_ = conn.WriteMessage(websocket.TextMessage, cb)
			break
		}
	}
}

// handleStopCommand 识别停止指令并置位停止标志，返回是否已消费该消息。
func (h *ChatHandler) handleStopCommand(conn *websocket.Conn, message []byte) bool {
	if len(message) == 0 || message[0] != '{' {
		return false
	}
	var ctrl map[string]interface{}
	if err := json.Unmarshal(message, &ctrl); err != nil {
		return false
	}
	t, ok := ctrl["type"].(string)
	if !ok || t != "stop" {
		return false
	}
	tok, ok := ctrl["_internal_cmd_token"].(string)
	if !ok {
		return false
	}

	h.stopTokenLock.Lock()
	valid := tok == h.stopToken
	h.stopTokenLock.Unlock()
	if !valid {
		return false
	}

	h.stopFlags.Store(sessionKey(conn), true)
	// 回发停止确认
	resp := map[string]interface{}{
		"type":      "stop",
		"message":   "响应已停止",
		"timestamp": time.Now().UnixMilli(),
		"date":      time.Now().Format("2006-01-02T15:04:05"),
	}
	b, _ := json.Marshal(resp)
	_ = conn.WriteMessage(websocket.TextMessage, b)
	return true
}

func sessionKey(conn *websocket.Conn) string {
	return fmt.Sprintf("%p", conn)
}
