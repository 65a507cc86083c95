package models

// Disease repräsentiert ein Krankheitsbild, das diagnostiziert werden kann.
type Disease struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;size:100;not null"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Disease) TableName() string {
	return "diseases"
}
