package services

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "pricematcher/server/errors"
)

// TaskStatus статус фоновой задачи сопоставления
type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// MatchingTask фоновая задача прогона сопоставления
type MatchingTask struct {
	ID         string              `json:"id"`
	Status     TaskStatus          `json:"status"`
	Request    MatchingRequest     `json:"request"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Summary    *MatchingRunSummary `json:"summary,omitempty"`
	Error      string              `json:"error,omitempty"`

	cancel context.CancelFunc
}

// StartMatching запускает прогон в фоне и возвращает задачу для отслеживания.
// Одновременно выполняется не более одного прогона: параллельные прогоны
// согласовывали бы одни и те же группы наперегонки.
func (s *MatchingService) StartMatching(req MatchingRequest) (*MatchingTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range s.tasks {
		if task.Status == TaskStatusRunning {
			return nil, apperrors.NewConflictError("прогон сопоставления уже выполняется", nil)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &MatchingTask{
		ID:        uuid.New().String(),
		Status:    TaskStatusRunning,
		Request:   req,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	s.tasks[task.ID] = task

	go s.runTask(ctx, task)

	log.Printf("🚀 Запущена задача сопоставления %s", task.ID)
	return task, nil
}

// runTask выполняет прогон и фиксирует итог задачи
func (s *MatchingService) runTask(ctx context.Context, task *MatchingTask) {
	summary, err := s.RunMatching(ctx, task.Request)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	task.FinishedAt = &now

	switch {
	case err != nil && ctx.Err() != nil:
		task.Status = TaskStatusCancelled
		task.Error = ctx.Err().Error()
	case err != nil:
		task.Status = TaskStatusFailed
		task.Error = err.Error()
		log.Printf("❌ Задача сопоставления %s завершилась ошибкой: %v", task.ID, err)
	default:
		task.Status = TaskStatusCompleted
		task.Summary = summary
	}
}

// GetTask возвращает задачу по ID
func (s *MatchingService) GetTask(id string) (*MatchingTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("задача не найдена", nil)
	}

	copied := *task
	return &copied, nil
}

// ListTasks возвращает задачи, новые первыми
func (s *MatchingService) ListTasks() []MatchingTask {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]MatchingTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, *task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].StartedAt.After(tasks[j].StartedAt)
	})
	return tasks
}

// StopTask отменяет выполняющуюся задачу. Уже зафиксированные группы
// остаются: фиксация покластерная, частичный результат корректен.
func (s *MatchingService) StopTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return apperrors.NewNotFoundError("задача не найдена", nil)
	}
	if task.Status != TaskStatusRunning {
		return apperrors.NewValidationError("задача уже завершена", nil)
	}

	task.cancel()
	return nil
}
