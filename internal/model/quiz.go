package model

// QuizOptions 表示一道选择题的四个选项。
type QuizOptions struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// QuizQuestion 表示一道生成的选择题。
// 结构与上游模型约定的 JSON 格式完全一致。
type QuizQuestion struct {
	Question string      `json:"question"`
	Options  QuizOptions `json:"options"`
	Correct  string      `json:"correct"`
}

// Valid 检查模型返回的题目是否字段齐全。
func (q QuizQuestion) Valid() bool {
	if q.Question == "" || q.Correct == "" {
		return false
	}
	return q.Options.A != "" && q.Options.B != "" && q.Options.C != "" && q.Options.D != ""
}
