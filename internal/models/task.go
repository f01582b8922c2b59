package models

import "time"

// TaskStatus はタスクの状態です。
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// TaskStatuses は選択可能な状態の一覧です（フォームの表示順）。
var TaskStatuses = []TaskStatus{StatusPending, StatusCompleted}

// ParseTaskStatus は文字列が有効な状態かどうかを判定します。
func ParseTaskStatus(value string) (TaskStatus, bool) {
	switch TaskStatus(value) {
	case StatusPending, StatusCompleted:
		return TaskStatus(value), true
	default:
		return "", false
	}
}

// Label は画面表示用の名称を返します。
func (s TaskStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// Task はユーザーが所有する ToDo 項目です。UserID は作成後に変更しません。
type Task struct {
	ID          string     `gorm:"primaryKey;size:36"`
	Title       string     `gorm:"size:100;not null"`
	Description string     `gorm:"size:500"`
	DueDate     *time.Time `gorm:"type:date"`
	Status      TaskStatus `gorm:"size:16;not null;default:pending;index"`
	UserID      string     `gorm:"size:36;not null;index"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time
}

// TableName はテーブル名を返します。
func (Task) TableName() string {
	return "tasks"
}

// IsCompleted は完了済みかどうかを返します。
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// OwnedBy は userID がこのタスクの所有者かどうかを返します。
func (t *Task) OwnedBy(userID string) bool {
	return userID != "" && t.UserID == userID
}
