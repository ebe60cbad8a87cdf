package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"studymate-go/internal/config"
	"studymate-go/internal/model"
	"studymate-go/internal/store"
	"studymate-go/pkg/llm"
	"studymate-go/pkg/log"
)

// difficultyInstructions 按难度给出出题要求，未知难度回退到 medium。
var difficultyInstructions = map[string]string{
	"easy":   "Create straightforward questions with obvious answers.",
	"medium": "Create moderately challenging questions requiring understanding.",
	"hard":   "Create complex questions requiring deep analysis and critical thinking.",
}

// quizPromptTemplate 要求模型只返回一个严格格式的 JSON 数组。
const quizPromptTemplate = `Based on the following educational content, generate %d multiple-choice questions.

Content:
%s

Requirements:
- %s
- Each question must have 4 options (A, B, C, D)
- Only ONE option should be correct
- Questions should test understanding of the content
- Difficulty level: %s

Return ONLY a valid JSON array in this exact format, with no additional text:
[
  {
    "question": "Question text here?",
    "options": {
      "A": "First option",
      "B": "Second option",
      "C": "Third option",
      "D": "Fourth option"
    },
    "correct": "A"
  }
]

Generate %d questions now:`

// jsonArrayPattern 从模型输出中定位第一个 JSON 数组。
var jsonArrayPattern = regexp.MustCompile(`\[[\s\S]*\]`)

// QuizService 定义了测验生成的接口。
type QuizService interface {
	Generate(ctx context.Context, numQuestions int, difficulty, language string) ([]model.QuizQuestion, error)
}

type quizService struct {
	docStore  *store.DocumentStore
	llmClient llm.Client
	ragCfg    config.RAGConfig
}

// NewQuizService 创建一个新的 QuizService 实例。
func NewQuizService(docStore *store.DocumentStore, llmClient llm.Client, ragCfg config.RAGConfig) QuizService {
	return &quizService{
		docStore:  docStore,
		llmClient: llmClient,
		ragCfg:    ragCfg,
	}
}

// Generate 基于已上传文档生成选择题。
// 模型输出无法解析或没有合法题目时，回退为基于原文句子的确定性测验，
// 所以除了"没有文档"之外不会失败。
func (s *quizService) Generate(ctx context.Context, numQuestions int, difficulty, language string) ([]model.QuizQuestion, error) {
	if s.docStore.Count() == 0 {
		return nil, ErrNoDocuments
	}
	if numQuestions <= 0 {
		numQuestions = 5
	}

	instruction, ok := difficultyInstructions[difficulty]
	if !ok {
		instruction = difficultyInstructions["medium"]
	}

	contextText := s.docStore.AllText(s.ragCfg.QuizContextChars)
	prompt := fmt.Sprintf(quizPromptTemplate, numQuestions, contextText, instruction, difficulty, numQuestions)
	if language != "" && language != "English" {
		prompt += fmt.Sprintf(languageSuffix, language)
	}

	response, err := s.llmClient.Generate(ctx, prompt)
	if err != nil {
		log.Warnf("[QuizService] 调用模型失败, 使用回退测验: %v", err)
		return fallbackQuiz(numQuestions, contextText), nil
	}

	questions := parseQuizResponse(response, numQuestions)
	if len(questions) == 0 {
		log.Warnf("[QuizService] 模型输出无法解析, 使用回退测验")
		return fallbackQuiz(numQuestions, contextText), nil
	}
	log.Infof("[QuizService] 测验生成成功, 题目数: %d, 难度: %s", len(questions), difficulty)
	return questions, nil
}

// parseQuizResponse 从模型输出中提取并校验题目，最多保留 num 道。
func parseQuizResponse(response string, num int) []model.QuizQuestion {
	payload := jsonArrayPattern.FindString(response)
	if payload == "" {
		payload = response
	}

	var parsed []model.QuizQuestion
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil
	}

	var valid []model.QuizQuestion
	for _, q := range parsed {
		if len(valid) == num {
			break
		}
		if q.Valid() {
			valid = append(valid, q)
		}
	}
	return valid
}

// fallbackQuiz 在模型不可用时用原文句子构造测验。
// 取长度超过 20 个字符的句子，每句作为正确选项 A，配三个固定干扰项。
func fallbackQuiz(num int, contextText string) []model.QuizQuestion {
	var sentences []string
	for _, s := range strings.Split(contextText, ".") {
		s = strings.TrimSpace(s)
		if len([]rune(s)) > 20 {
			sentences = append(sentences, s)
		}
		if len(sentences) == num {
			break
		}
	}

	questions := make([]model.QuizQuestion, 0, len(sentences))
	for i, sentence := range sentences {
		optionA := sentence
		if runes := []rune(sentence); len(runes) > 100 {
			optionA = string(runes[:100]) + "..."
		}
		questions = append(questions, model.QuizQuestion{
			Question: fmt.Sprintf("Based on the document, which statement is accurate? (Question %d)", i+1),
			Options: model.QuizOptions{
				A: optionA,
				B: "This information is not in the document",
				C: "The document does not address this topic",
				D: "None of the above",
			},
			Correct: "A",
		})
	}
	return questions
}
