package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

type Projects struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewProjects(gdb *gorm.DB, l *zap.SugaredLogger) *Projects {
	return &Projects{
		db:     gdb,
		logger: l,
	}
}

func (s *Projects) CreateTask(title string) (*db.Task, error) {
	if title == "" {
		return nil, Invalid("title is required")
	}

	task := db.Task{
		Title:    title,
		Finished: false,
	}
	if err := s.db.Create(&task).Error; err != nil {
		return nil, errors.Wrap(err, "create task")
	}
	return &task, nil
}

func (s *Projects) GetTask(id uint64) (*db.Task, error) {
	task := db.Task{}
	res := s.db.First(&task, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFound("task not found")
		}
		return nil, errors.Wrap(res.Error, "find task")
	}
	return &task, nil
}

func (s *Projects) GetTasks() ([]db.Task, error) {
	tasks := make([]db.Task, 0)
	if err := s.db.Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "find tasks")
	}
	return tasks, nil
}

func (s *Projects) UpdateTask(id uint64, title string, finished bool) (*db.Task, error) {
	if title == "" {
		return nil, Invalid("title and status are required")
	}

	task := db.Task{}
	if err := s.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("task not found")
		}
		return nil, errors.Wrap(err, "find task")
	}

	updates := map[string]interface{}{"title": title, "finished": finished}
	if err := s.db.Model(&task).Updates(updates).Error; err != nil {
		return nil, errors.Wrap(err, "update task")
	}
	return &task, nil
}

// DeleteTask also pulls the task out of every project that referenced it.
func (s *Projects) DeleteTask(id uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		task := db.Task{}
		if err := tx.First(&task, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("task not found")
			}
			return errors.Wrap(err, "find task")
		}

		if err := tx.Model(&task).Association("Projects").Clear(); err != nil {
			return errors.Wrap(err, "clear projects")
		}

		if err := tx.Delete(&task).Error; err != nil {
			return errors.Wrap(err, "delete task")
		}
		return nil
	})
}

// CreateProject inserts the project and wires it to every referenced task in
// one transaction. Unknown task ids are all reported at once.
func (s *Projects) CreateProject(name, description string, startDate, endDate time.Time, taskIDs []uint64) (*db.Project, error) {
	if name == "" || description == "" || startDate.IsZero() || endDate.IsZero() || taskIDs == nil {
		return nil, Invalid("all fields are required")
	}

	project := db.Project{
		Name:        name,
		Description: description,
		StartDate:   startDate,
		EndDate:     endDate,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		tasks, err := tasksByID(tx, taskIDs)
		if err != nil {
			return err
		}

		project.Tasks = tasks
		if err := tx.Create(&project).Error; err != nil {
			return errors.Wrap(err, "create project")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &project, nil
}

func (s *Projects) GetProjects() ([]db.Project, error) {
	projects := make([]db.Project, 0)
	if err := s.db.Preload("Tasks").Find(&projects).Error; err != nil {
		return nil, errors.Wrap(err, "find projects")
	}
	return projects, nil
}

func (s *Projects) GetProject(id uint64) (*db.Project, error) {
	project := db.Project{}
	res := s.db.Preload("Tasks").First(&project, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFound("project not found")
		}
		return nil, errors.Wrap(res.Error, "find project")
	}
	return &project, nil
}

// UpdateProject rewrites the project's task set: edges to dropped tasks go
// away, edges to added tasks appear, all in one transaction.
func (s *Projects) UpdateProject(id uint64, name, description string, startDate, endDate time.Time, taskIDs []uint64) (*db.Project, error) {
	if name == "" || description == "" || startDate.IsZero() || endDate.IsZero() || taskIDs == nil {
		return nil, Invalid("all fields are required")
	}

	project := db.Project{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&project, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("project not found")
			}
			return errors.Wrap(err, "find project")
		}

		tasks, err := tasksByID(tx, taskIDs)
		if err != nil {
			return err
		}

		if err := tx.Model(&project).Association("Tasks").Replace(tasks); err != nil {
			return errors.Wrap(err, "replace tasks")
		}
		project.Tasks = tasks

		updates := map[string]interface{}{
			"name":        name,
			"description": description,
			"start_date":  startDate,
			"end_date":    endDate,
		}
		if err := tx.Model(&project).Updates(updates).Error; err != nil {
			return errors.Wrap(err, "update project")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &project, nil
}

func (s *Projects) DeleteProject(id uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		project := db.Project{}
		if err := tx.First(&project, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("project not found")
			}
			return errors.Wrap(err, "find project")
		}

		if err := tx.Model(&project).Association("Tasks").Clear(); err != nil {
			return errors.Wrap(err, "clear tasks")
		}

		if err := tx.Delete(&project).Error; err != nil {
			return errors.Wrap(err, "delete project")
		}
		return nil
	})
}

func tasksByID(tx *gorm.DB, ids []uint64) ([]db.Task, error) {
	unique := make([]uint64, 0, len(ids))
	seen := map[uint64]struct{}{}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	tasks := make([]db.Task, 0, len(unique))
	if len(unique) == 0 {
		return tasks, nil
	}

	if err := tx.Where("id IN ?", unique).Find(&tasks).Error; err != nil {
		return nil, errors.Wrap(err, "find tasks")
	}
	if len(tasks) != len(unique) {
		found := map[uint64]struct{}{}
		for _, t := range tasks {
			found[t.ID] = struct{}{}
		}
		missing := make([]string, 0)
		for _, id := range unique {
			if _, ok := found[id]; !ok {
				missing = append(missing, strconv.FormatUint(id, 10))
			}
		}
		return nil, Invalid(fmt.Sprintf("the following tasks do not exist: %s", strings.Join(missing, ", ")))
	}

	return tasks, nil
}
