// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
// 这里的 token 用作 WebSocket 聊天连接的一次性入场券。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager 负责管理 JWT 的生成和验证。
type JWTManager struct {
	secretKey []byte        // secretKey 用于签名和验证 token 的密钥
	ticketDur time.Duration // ticketDur 定义了聊天 ticket 的有效期
}

// TicketClaims 定义了 WebSocket 聊天 ticket 中携带的数据。
// 它嵌入了 jwt.RegisteredClaims 以包含标准的 JWT 声明（如过期时间）。
type TicketClaims struct {
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
// secret: 用于签名的密钥字符串。
// ticketExpireMinutes: ticket 的过期时间（分钟）。
func NewJWTManager(secret string, ticketExpireMinutes int) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secret),
		ticketDur: time.Minute * time.Duration(ticketExpireMinutes),
	}
}

// GenerateTicket 生成一个新的聊天 ticket，sessionID 用于区分连接。
func (m *JWTManager) GenerateTicket(sessionID string) (string, error) {
	claims := TicketClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ticketDur)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyTicket 验证给定的 ticket 字符串。
// 如果 ticket 有效，返回 TicketClaims 对象；
// 无效（签名不匹配或已过期）时返回错误。
func (m *JWTManager) VerifyTicket(tokenString string) (*TicketClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TicketClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TicketClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GenerateRandomString generates a random hex string of a given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less random string on error
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
