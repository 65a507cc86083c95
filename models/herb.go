package models

// Herb repräsentiert einen Bestandteil einer Rezeptur (z.B. "人参").
type Herb struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;size:100;not null"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Herb) TableName() string {
	return "herbs"
}
