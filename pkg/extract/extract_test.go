package extract

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("lecture.pdf"))
	assert.True(t, IsSupported("notes.DOCX"))
	assert.True(t, IsSupported("readme.md"))
	assert.True(t, IsSupported("plain.txt"))
	assert.False(t, IsSupported("slides.pptx"))
	assert.False(t, IsSupported("archive"))
}

func TestExtractPlainText(t *testing.T) {
	content := "第一段内容。\n第二段内容。"
	r := bytes.NewReader([]byte(content))

	text, pages, err := ExtractText(r, int64(r.Len()), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, content, text)
	assert.Equal(t, 1, pages)
}

func TestExtractMarkdown(t *testing.T) {
	content := "# 标题\n\n正文内容保持原样。"
	r := bytes.NewReader([]byte(content))

	text, pages, err := ExtractText(r, int64(r.Len()), "README.md")
	require.NoError(t, err)
	assert.Equal(t, content, text)
	assert.Equal(t, 1, pages)
}

func TestExtractEmptyDocument(t *testing.T) {
	r := bytes.NewReader([]byte("   \n\t  "))

	_, _, err := ExtractText(r, int64(r.Len()), "empty.txt")
	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtractUnsupportedType(t *testing.T) {
	r := bytes.NewReader([]byte("data"))

	_, _, err := ExtractText(r, int64(r.Len()), "slides.pptx")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExtractTextFromXML(t *testing.T) {
	xml := `<w:document><w:body><w:p><w:r><w:t>第一段</w:t></w:r></w:p><w:p><w:r><w:t>第二段</w:t></w:r></w:p></w:body></w:document>`
	text := extractTextFromXML(xml)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "第一段", lines[0])
	assert.Equal(t, "第二段", lines[1])
}
