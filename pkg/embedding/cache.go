package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"studymate-go/internal/config"
	"studymate-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// cachedClient 在真实 Embedding 客户端外包一层 Redis 缓存。
// 同一模型下相同文本的向量是确定的，重复嵌入直接命中缓存。
// Redis 不可用时降级为直连，不影响主流程。
type cachedClient struct {
	inner Client
	rdb   *redis.Client
	model string
	ttl   time.Duration
}

// NewCachedClient wraps an embedding client with a Redis cache.
func NewCachedClient(inner Client, rdb *redis.Client, cfg config.EmbeddingConfig) Client {
	ttl := time.Duration(cfg.CacheTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	return &cachedClient{
		inner: inner,
		rdb:   rdb,
		model: cfg.Model,
		ttl:   ttl,
	}
}

func (c *cachedClient) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("embedding:%s:%s", c.model, hex.EncodeToString(sum[:]))
}

func (c *cachedClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *cachedClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	// 先批量查缓存，记录未命中的下标
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		cached, err := c.rdb.Get(ctx, c.cacheKey(text)).Bytes()
		if err == nil {
			var vec []float32
			if jsonErr := json.Unmarshal(cached, &vec); jsonErr == nil && len(vec) > 0 {
				vectors[i] = vec
				continue
			}
		} else if err != redis.Nil {
			log.Warnf("[EmbeddingCache] 读取缓存失败, 降级为直连: %v", err)
		}
		missTexts = append(missTexts, texts[i])
		missIdx = append(missIdx, i)
	}

	log.Debugf("[EmbeddingCache] 缓存命中 %d/%d", len(texts)-len(missTexts), len(texts))

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.CreateEmbeddings(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, vec := range fresh {
		vectors[missIdx[j]] = vec
		data, jsonErr := json.Marshal(vec)
		if jsonErr != nil {
			continue
		}
		if setErr := c.rdb.Set(ctx, c.cacheKey(missTexts[j]), data, c.ttl).Err(); setErr != nil {
			log.Warnf("[EmbeddingCache] 写入缓存失败: %v", setErr)
		}
	}
	return vectors, nil
}
