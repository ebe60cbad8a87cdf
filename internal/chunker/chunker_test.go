package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Run("固定示例", func(t *testing.T) {
		chunks, err := Split("ABCDEFGHIJ", 4, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"ABCD", "DEFG", "GHIJ"}, chunks)
	})

	t.Run("空文本返回空序列", func(t *testing.T) {
		chunks, err := Split("", 4, 1)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("短于窗口时只有一个分块", func(t *testing.T) {
		chunks, err := Split("abc", 10, 2)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "abc", chunks[0])
	})

	t.Run("覆盖无缺口", func(t *testing.T) {
		text := strings.Repeat("abcdefghij", 37) // 370 字符
		chunkSize, overlap := 50, 10
		chunks, err := Split(text, chunkSize, overlap)
		require.NoError(t, err)

		// 每个分块的起点应等于上一个分块终点减去重叠部分
		step := chunkSize - overlap
		offset := 0
		var rebuilt strings.Builder
		for i, c := range chunks {
			if i == 0 {
				rebuilt.WriteString(c)
			} else {
				// 去掉与上一块重叠的前缀后拼接，结果应还原原文
				rebuilt.WriteString(c[overlap:])
			}
			assert.Equal(t, i*step, offset)
			offset += step
		}
		assert.Equal(t, text, rebuilt.String())
	})

	t.Run("分块数量公式", func(t *testing.T) {
		cases := []struct {
			n, size, overlap int
		}{
			{10, 4, 1},
			{100, 10, 3},
			{500, 500, 100},
			{501, 500, 100},
			{1, 500, 100},
		}
		for _, tc := range cases {
			text := strings.Repeat("x", tc.n)
			chunks, err := Split(text, tc.size, tc.overlap)
			require.NoError(t, err)
			want := 1
			if tc.n > tc.overlap {
				step := tc.size - tc.overlap
				want = (tc.n - tc.overlap + step - 1) / step
			}
			assert.Len(t, chunks, want, "n=%d size=%d overlap=%d", tc.n, tc.size, tc.overlap)
		}
	})

	t.Run("按 rune 而非字节计数", func(t *testing.T) {
		chunks, err := Split("一二三四五六七八九十", 4, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"一二三四", "四五六七", "七八九十"}, chunks)
	})

	t.Run("非法参数", func(t *testing.T) {
		_, err := Split("abc", 0, 0)
		assert.Error(t, err)
		_, err = Split("abc", 4, 4)
		assert.Error(t, err)
		_, err = Split("abc", 4, -1)
		assert.Error(t, err)
	})
}
