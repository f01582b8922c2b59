// Package tasks はタスクの作成・閲覧・編集・削除と完了状態の切り替えを提供します。
// すべての操作は所有者の確認を経て行われます。
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/task-tracker/internal/models"
	"github.com/yourusername/task-tracker/internal/repository"
	"github.com/yourusername/task-tracker/internal/validation"
)

var (
	// ErrNotFound はタスクが存在しない（またはIDが不正な）場合に返されます。
	ErrNotFound = errors.New("task not found")
	// ErrForbidden は他のユーザーのタスクを操作しようとした場合に返されます。
	ErrForbidden = errors.New("task belongs to another user")
)

const dateLayout = "2006-01-02"

// Repository はタスクの永続化に必要な操作です。
type Repository interface {
	Create(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id string) (*models.Task, error)
	ListByOwner(ctx context.Context, ownerID string, status models.TaskStatus) ([]models.Task, error)
	Update(ctx context.Context, id string, mutate func(*models.Task) error) (*models.Task, error)
	Delete(ctx context.Context, id string, check func(*models.Task) error) error
}

// Input はタスクフォームの入力です。
type Input struct {
	Title       string `form:"title" validate:"required,min=5,max=100"`
	Description string `form:"description" validate:"max=500"`
	DueDate     string `form:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Status      string `form:"status" validate:"required,oneof=pending completed"`
}

// FormValues はフォーム再表示用の値を返します。
func (in Input) FormValues() map[string]string {
	return map[string]string{
		"title":       in.Title,
		"description": in.Description,
		"due_date":    in.DueDate,
		"status":      in.Status,
	}
}

// InputFromTask は既存タスクの値でフォーム入力を作成します。
func InputFromTask(task *models.Task) Input {
	in := Input{
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
	}
	if task.DueDate != nil {
		in.DueDate = task.DueDate.Format(dateLayout)
	}
	return in
}

// Service はタスクの業務ロジックです。
type Service struct {
	repo      Repository
	validator *validation.Validator
	now       func() time.Time
}

// NewService は Service を作成します。
func NewService(repo Repository, validator *validation.Validator) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List は所有者のタスクを新しい順に返します。
// status が pending / completed 以外（空文字を含む）の場合は絞り込みません。
func (s *Service) List(ctx context.Context, ownerID, status string) ([]models.Task, error) {
	filter, _ := models.ParseTaskStatus(status)
	tasks, err := s.repo.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Create は新しいタスクを登録します。
func (s *Service) Create(ctx context.Context, ownerID string, input Input) (*models.Task, error) {
	dueDate, err := s.validate(&input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		DueDate:     dueDate,
		Status:      models.TaskStatus(input.Status),
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// Get は requester が所有するタスクを返します。
func (s *Service) Get(ctx context.Context, id, requesterID string) (*models.Task, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if err := authorize(task, requesterID); err != nil {
		return nil, err
	}
	return task, nil
}

// Edit はタスクの内容を入力値で置き換えます。
// 存在確認と所有者確認は入力検証より先に行われます。
func (s *Service) Edit(ctx context.Context, id, requesterID string, input Input) (*models.Task, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	task, err := s.repo.Update(ctx, id, func(task *models.Task) error {
		if err := authorize(task, requesterID); err != nil {
			return err
		}
		dueDate, err := s.validate(&input)
		if err != nil {
			return err
		}
		task.Title = input.Title
		task.Description = input.Description
		task.DueDate = dueDate
		task.Status = models.TaskStatus(input.Status)
		task.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return task, nil
}

// Delete はタスクを削除します。
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	if !validID(id) {
		return ErrNotFound
	}
	err := s.repo.Delete(ctx, id, func(task *models.Task) error {
		return authorize(task, requesterID)
	})
	return translate(err)
}

// Complete はタスクを完了にします。既に完了でも成功します。
func (s *Service) Complete(ctx context.Context, id, requesterID string) (*models.Task, error) {
	return s.setStatus(ctx, id, requesterID, models.StatusCompleted)
}

// Uncomplete はタスクを未完了に戻します。既に未完了でも成功します。
func (s *Service) Uncomplete(ctx context.Context, id, requesterID string) (*models.Task, error) {
	return s.setStatus(ctx, id, requesterID, models.StatusPending)
}

func (s *Service) setStatus(ctx context.Context, id, requesterID string, status models.TaskStatus) (*models.Task, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	task, err := s.repo.Update(ctx, id, func(task *models.Task) error {
		if err := authorize(task, requesterID); err != nil {
			return err
		}
		task.Status = status
		task.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return task, nil
}

// validate は入力を正規化・検証し、期日を返します。
func (s *Service) validate(input *Input) (*time.Time, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.DueDate = strings.TrimSpace(input.DueDate)

	if err := s.validator.Struct(*input); err != nil {
		return nil, err
	}
	if input.DueDate == "" {
		return nil, nil
	}
	due, err := time.Parse(dateLayout, input.DueDate)
	if err != nil {
		return nil, validation.Field("due_date", "Not a valid date value (YYYY-MM-DD).", nil)
	}
	return &due, nil
}

func authorize(task *models.Task, requesterID string) error {
	if !task.OwnedBy(requesterID) {
		return ErrForbidden
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// translate はリポジトリのエラーをこのパッケージのエラーに変換します。
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrForbidden), errors.Is(err, validation.ErrInvalid):
		return err
	default:
		return fmt.Errorf("task store failure: %w", err)
	}
}
