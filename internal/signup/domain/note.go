package domain

import (
	"fmt"
	"strings"
	"time"
)

// Note 审核备注，独立于状态机
type Note struct {
	ID        uint
	SignupID  string
	AuthorID  string
	Author    string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewNote 创建备注
func NewNote(signupID string, author Actor, content string) (*Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: note content is required", ErrInvalidInput)
	}
	return &Note{
		SignupID: signupID,
		AuthorID: author.ID,
		Author:   author.Name,
		Content:  content,
	}, nil
}

// CanModify 作者本人或管理员可修改、删除备注
func (n *Note) CanModify(actor Actor) bool {
	return actor.IsElevated() || (actor.ID != "" && actor.ID == n.AuthorID)
}

// Edit 修改备注内容
func (n *Note) Edit(actor Actor, content string, at time.Time) error {
	if !n.CanModify(actor) {
		return ErrForbidden
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: note content is required", ErrInvalidInput)
	}
	n.Content = content
	n.UpdatedAt = at
	return nil
}
