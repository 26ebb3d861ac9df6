package topics

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/drewmudry/scriptcast/models"
)

// ErrNoPendingTopics means every stored topic has been used or failed.
var ErrNoPendingTopics = errors.New("topics: no pending topics")

// Store keeps the topic backlog in the database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Add inserts the topics that are not stored yet and returns how many were
// new. Blank entries are ignored.
func (s *Store) Add(ctx context.Context, texts []string, source string) (int, error) {
	added := 0
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		topic := models.Topic{Text: text, Source: source, Status: models.TopicPending}
		result := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "text"}}, DoNothing: true}).
			Create(&topic)
		if result.Error != nil {
			return added, result.Error
		}
		added += int(result.RowsAffected)
	}
	return added, nil
}

// NextPending returns the oldest pending topic.
func (s *Store) NextPending(ctx context.Context) (*models.Topic, error) {
	var topic models.Topic
	err := s.db.WithContext(ctx).
		Where("status = ?", models.TopicPending).
		Order("id asc").
		First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPendingTopics
	}
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

// Get loads a topic by ID.
func (s *Store) Get(ctx context.Context, id uint) (*models.Topic, error) {
	var topic models.Topic
	if err := s.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// GetByText loads the topic stored with exactly text.
func (s *Store) GetByText(ctx context.Context, text string) (*models.Topic, error) {
	var topic models.Topic
	if err := s.db.WithContext(ctx).Where("text = ?", strings.TrimSpace(text)).First(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

// List returns topics newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, status string, limit int) ([]models.Topic, error) {
	q := s.db.WithContext(ctx).Order("id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Topic
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) MarkUsed(ctx context.Context, id uint) error {
	now := time.Now()
	return s.setStatus(ctx, id, map[string]interface{}{"status": models.TopicUsed, "used_at": &now})
}

func (s *Store) MarkFailed(ctx context.Context, id uint) error {
	return s.setStatus(ctx, id, map[string]interface{}{"status": models.TopicFailed})
}

func (s *Store) setStatus(ctx context.Context, id uint, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.Topic{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
