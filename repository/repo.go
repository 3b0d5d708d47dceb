package repository

import (
	"context"
	"database/sql"
	"dreamreel/constant"
	"dreamreel/entities"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type JobRepository interface {
	GetDB() *gorm.DB
	CreateJob(ctx context.Context, job *entities.Job) error
	FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error)
	UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error
	CompleteJob(ctx context.Context, id uuid.UUID, dreamId uuid.UUID) error
	FailJob(ctx context.Context, id uuid.UUID, reason string) error
}

// repo is the postgres-backed store for both dreams and pipeline jobs.
type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB, verbose bool) (*repo, error) {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(level),
		},
	)
	if err != nil {
		return nil, err
	}
	return &repo{
		db: gormDB,
	}, nil
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Open(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&entities.Dream{}, &entities.Job{})
}

func (r *repo) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func (r *repo) List(ctx context.Context) ([]entities.Dream, error) {
	var dreams []entities.Dream
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&dreams).Error
	if err != nil {
		return nil, err
	}
	return dreams, nil
}

func (r *repo) Insert(ctx context.Context, dream entities.Dream) error {
	return r.db.WithContext(ctx).Create(&dream).Error
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, patch entities.DreamPatch) error {
	tx := r.db.WithContext(ctx).Model(&entities.Dream{}).Where("id = ?", id)
	if patch.UserTitle == nil {
		var count int64
		if err := tx.Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return nil
	}
	res := tx.Update("user_title", *patch.UserTitle)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&entities.Dream{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repo) CreateJob(ctx context.Context, job *entities.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repo) FindJobById(ctx context.Context, id uuid.UUID) (*entities.Job, error) {
	job := &entities.Job{}
	err := r.db.WithContext(ctx).First(job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return job, nil
}

func (r *repo) UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error {
	job := &entities.Job{}
	err := r.db.WithContext(ctx).First(job, "id = ?", id).Error
	if err != nil {
		return err
	}
	job.Status = status
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *repo) CompleteJob(ctx context.Context, id uuid.UUID, dreamId uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entities.Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":    constant.JobStatusCompleted,
		"entity_id": dreamId,
	}).Error
}

func (r *repo) FailJob(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).Model(&entities.Job{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": constant.JobStatusFailed,
		"error":  reason,
	}).Error
}
