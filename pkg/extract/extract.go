// Package extract 负责从上传的文档中提取纯文本。
// 解析在本进程内完成：PDF 按页提取，DOCX 提取正文段落，
// txt/md 直接读取；空页会被跳过。
package extract

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// ErrNoText 表示文档中没有任何可提取的文本。
var ErrNoText = errors.New("文档中没有可提取的文本")

// ErrUnsupported 表示文件类型不受支持。
var ErrUnsupported = errors.New("不支持的文件类型")

// SupportedExtensions 列出可以被解析的文件后缀。
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// IsSupported 判断文件名的后缀是否受支持。
func IsSupported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ExtractText 提取整篇文档的文本，返回文本与页数。
// 各页文本直接拼接（与逐页 extract 再累加等价），空页不计入页数。
// 全文为空时返回 ErrNoText。
func ExtractText(r io.ReaderAt, size int64, fileName string) (string, int, error) {
	pages, err := ExtractPages(r, size, fileName)
	if err != nil {
		return "", 0, err
	}
	text := strings.Join(pages, "")
	if strings.TrimSpace(text) == "" {
		return "", 0, ErrNoText
	}
	return text, len(pages), nil
}

// ExtractPages 按页提取文本，跳过空页。
func ExtractPages(r io.ReaderAt, size int64, fileName string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".pdf":
		return extractPDF(r, size)
	case ".docx":
		return extractDOCX(r, size)
	case ".txt", ".md":
		return extractPlain(r, size)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
}

func extractPDF(r io.ReaderAt, size int64) ([]string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("解析 PDF 失败: %w", err)
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// 单页解析失败时跳过该页，尽量提取其余内容
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, pageText)
	}
	return pages, nil
}

func extractDOCX(r io.ReaderAt, size int64) ([]string, error) {
	d, err := docx.ReadDocxFromMemory(r, size)
	if err != nil {
		return nil, fmt.Errorf("解析 DOCX 失败: %w", err)
	}
	defer d.Close()

	content := d.Editable().GetContent()
	text := extractTextFromXML(content)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	// DOCX 没有页的概念，整篇视为一页
	return []string{text}, nil
}

func extractPlain(r io.ReaderAt, size int64) ([]string, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []string{text}, nil
}

var (
	reParagraph = regexp.MustCompile(`</w:p>`)
	reTag       = regexp.MustCompile(`<[^>]+>`)
)

// extractTextFromXML 去掉 OOXML 标签，只保留文本，段落转换为换行。
func extractTextFromXML(content string) string {
	text := reParagraph.ReplaceAllString(content, "\n")
	text = reTag.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
