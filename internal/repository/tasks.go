package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/task-tracker/internal/models"
)

// 編集で上書きする列。所有者と作成日時は含めない。
var mutableTaskColumns = []string{"Title", "Description", "DueDate", "Status", "UpdatedAt"}

// TaskRepository はタスクの永続化を担います。
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository は TaskRepository を作成します。
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create はタスクを登録します。
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return translate(r.db.WithContext(ctx).Create(task).Error)
}

// FindByID は ID でタスクを検索します。
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

// ListByOwner は所有者のタスクを作成日時の降順で返します。status が空なら全件です。
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string, status models.TaskStatus) ([]models.Task, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	tasks := []models.Task{}
	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update はトランザクション内でタスクを読み込み、mutate で変更して保存します。
// mutate がエラーを返した場合は何も書き込まずにそのエラーを返します。
func (r *TaskRepository) Update(ctx context.Context, id string, mutate func(*models.Task) error) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := mutate(&task); err != nil {
			return err
		}
		return tx.Model(&task).Select(mutableTaskColumns).Updates(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete はトランザクション内でタスクを読み込み、check が通れば削除します。
func (r *TaskRepository) Delete(ctx context.Context, id string, check func(*models.Task) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := check(&task); err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
}
