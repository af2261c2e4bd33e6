package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a row of reference data, one per village. It is loaded in bulk and only read by the resolver.
type Location struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Path      LocationPath `gorm:"embedded" json:"location"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
