package answers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/voiceweb/internal/database"
)

const appendRetries = 3

type record struct {
	ID        uint   `gorm:"primaryKey"`
	Namespace string `gorm:"size:64;not null;uniqueIndex:idx_qa_ns_question"`
	Question  string `gorm:"size:512;not null;uniqueIndex:idx_qa_ns_question"`
	Answer    string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (record) TableName() string { return "question_answers" }

// GormStore persists answers in a SQL database. Entries are scoped by
// namespace so several sessions can share one table.
type GormStore struct {
	pool      *database.PoolManager
	namespace string
	logger    *zap.Logger
}

// NewGormStore creates a store over pool. Call Migrate before first use.
func NewGormStore(pool *database.PoolManager, namespace string, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if namespace == "" {
		namespace = "default"
	}
	return &GormStore{
		pool:      pool,
		namespace: namespace,
		logger:    logger.With(zap.String("component", "answers_gorm"), zap.String("namespace", namespace)),
	}
}

// Migrate creates or updates the answers table.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migrate answers table: %w", err)
	}
	return nil
}

func (s *GormStore) Append(ctx context.Context, question, answer string) (int, error) {
	q, err := normalize(question)
	if err != nil {
		return 0, err
	}

	var count int64
	err = s.pool.WithTransactionRetry(ctx, appendRetries, func(tx *gorm.DB) error {
		var existing record
		err := tx.Where("namespace = ? AND question = ?", s.namespace, q).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&record{Namespace: s.namespace, Question: q, Answer: answer}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&existing).Update("answer", merge(existing.Answer, answer)).Error; err != nil {
				return err
			}
		}
		return tx.Model(&record{}).Where("namespace = ?", s.namespace).Count(&count).Error
	})
	if err != nil {
		s.logger.Error("append answer failed", zap.String("question", q), zap.Error(err))
		return 0, fmt.Errorf("append answer: %w", err)
	}
	return int(count), nil
}

func (s *GormStore) All(ctx context.Context) ([]Entry, error) {
	var rows []record
	if err := s.pool.DB().WithContext(ctx).
		Where("namespace = ?", s.namespace).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{Question: r.Question, Answer: r.Answer, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

func (s *GormStore) Reset(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).
		Where("namespace = ?", s.namespace).
		Delete(&record{}).Error; err != nil {
		return fmt.Errorf("reset answers: %w", err)
	}
	return nil
}
