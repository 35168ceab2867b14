package domain

import (
	"fmt"
	"strings"
	"time"
)

// FieldType 问卷问题类型
type FieldType string

const (
	FieldTypeText     FieldType = "TEXT"
	FieldTypeDropdown FieldType = "DROPDOWN"
	FieldTypeYesNo    FieldType = "YES_NO"
)

// DefaultYesNoAnswer YesNo 问题未作答时的默认值
const DefaultYesNoAnswer = "No"

// ParseFieldType 解析问题类型
func ParseFieldType(s string) (FieldType, error) {
	f := FieldType(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FieldTypeText, FieldTypeDropdown, FieldTypeYesNo:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown field type %q", ErrInvalidInput, s)
}

// Question 资质问卷中的问题
type Question struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	FieldType FieldType `json:"field_type"`
	Required  bool      `json:"required"`
	Options   []string  `json:"options,omitempty"`
}

// QAForm 渠道资质问卷
type QAForm struct {
	ID        uint
	Provider  Provider
	Name      string
	Questions []Question
	Active    bool
	CreatedBy string
	CreatedAt time.Time
}

// Validate 校验问卷定义本身
func (f *QAForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: form name is required", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(f.Questions))
	for _, q := range f.Questions {
		if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question id and text are required", ErrInvalidInput)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidInput, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.FieldType == FieldTypeDropdown && len(q.Options) == 0 {
			return fmt.Errorf("%w: dropdown question %q has no options", ErrInvalidInput, q.ID)
		}
	}
	return nil
}

// Answers 单渠道的作答，按问题 ID 索引
type Answers map[string]string

// ValidateAnswers 按渠道规范顺序、问题顺序校验作答，返回每个渠道待记录的问卷回答。
// forms 中缺失或为 nil 的渠道视为没有问卷
func ValidateAnswers(targets []Provider, forms map[Provider]*QAForm, answers map[Provider]Answers) (map[Provider][]QAResponse, error) {
	out := make(map[Provider][]QAResponse, len(targets))
	for _, p := range Providers {
		if !containsProvider(targets, p) {
			continue
		}
		form := forms[p]
		if form == nil {
			out[p] = nil
			continue
		}
		given := answers[p]
		responses := make([]QAResponse, 0, len(form.Questions))
		for _, q := range form.Questions {
			answer := strings.TrimSpace(given[q.ID])
			if answer == "" && q.FieldType == FieldTypeYesNo {
				answer = DefaultYesNoAnswer
			}
			if answer == "" && q.Required {
				return nil, &IncompleteAnswerError{Provider: p, QuestionID: q.ID, QuestionText: q.Text}
			}
			responses = append(responses, QAResponse{
				QuestionID:   q.ID,
				QuestionText: q.Text,
				Answer:       answer,
				Required:     q.Required,
			})
		}
		out[p] = responses
	}
	return out, nil
}

func containsProvider(list []Provider, p Provider) bool {
	for _, x := range list {
		if x == p {
			return true
		}
	}
	return false
}
