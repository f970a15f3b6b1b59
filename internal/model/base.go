package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Platform tags used to restrict a row to one client app.
const (
	TagAndroid = "a"
	TagIOS     = "i"
)

// Base carries the columns shared by every persisted entity.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;<-:create" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Enabled   bool      `gorm:"not null;default:true;index" json:"enabled"`
	Tag       *string   `gorm:"size:1" json:"tag,omitempty"`
}

func (b Base) IsEnabled() bool {
	return b.Enabled
}

// Toggleable is implemented by every entity embedding Base.
type Toggleable interface {
	IsEnabled() bool
}

// FilterEnabled returns the enabled items, keeping their order.
func FilterEnabled[T Toggleable](items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.IsEnabled() {
			out = append(out, item)
		}
	}
	return out
}

// Enabled restricts a query to published rows.
func Enabled(db *gorm.DB) *gorm.DB {
	return db.Where(clause.Eq{
		Column: clause.Column{Table: clause.CurrentTable, Name: "enabled"},
		Value:  true,
	})
}

// RecentFirst is the default ordering: most recently updated first.
func RecentFirst(db *gorm.DB) *gorm.DB {
	return db.
		Order(orderBy("updated_at", true)).
		Order(orderBy("created_at", true))
}

func orderBy(column string, desc bool) clause.OrderByColumn {
	return clause.OrderByColumn{
		Column: clause.Column{Table: clause.CurrentTable, Name: column},
		Desc:   desc,
	}
}

// Parameters are the tunable values shared by an exercise and its per-plan copy.
type Parameters struct {
	NumberOfReps *uint    `json:"number_of_reps,omitempty"`
	Distance     *float64 `json:"distance,omitempty" validate:"omitempty,gte=0"`
	Duration     *uint    `json:"duration,omitempty"`
	Score        *uint    `json:"score,omitempty"`
	Weight       *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
}
