package domain

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is the result of one crawl request as it is archived.
type Snapshot struct {
	ID          string    `json:"id" bson:"_id"`
	Source      string    `json:"source" bson:"source"`
	CategoryKey string    `json:"category_key" bson:"category_key"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	Articles    []Article `json:"articles" bson:"articles"`
}

// NewSnapshot creates a snapshot with a fresh id.
func NewSnapshot(source, categoryKey string, createdAt time.Time, articles []Article) *Snapshot {
	return &Snapshot{
		ID:          uuid.NewString(),
		Source:      source,
		CategoryKey: categoryKey,
		CreatedAt:   createdAt,
		Articles:    articles,
	}
}
