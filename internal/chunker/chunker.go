// Package chunker 将长文本按固定窗口大小和重叠进行切分。
package chunker

import "fmt"

// Split 将文本切分为定长重叠窗口。
// 第 i 个分块从第 i*(chunkSize-chunkOverlap) 个字符开始，最多覆盖 chunkSize 个字符，
// 最后一个分块可以更短。按 rune 计数，不感知词与句子边界。
// 空文本返回空切片；参数非法时返回错误。
func Split(text string, chunkSize, chunkOverlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size 必须为正数, 当前为 %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk_overlap 必须满足 0 <= overlap < chunk_size, 当前为 %d/%d", chunkOverlap, chunkSize)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := chunkSize - chunkOverlap
	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
