package models

// HerbDiseaseAssociation ist eine ungewichtete Kante Herb -> Disease.
// Doppelte Kanten sind erlaubt und zählen beim Training als Häufigkeit.
type HerbDiseaseAssociation struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	HerbID    uint `json:"herb_id" gorm:"index;not null"`
	DiseaseID uint `json:"disease_id" gorm:"index;not null"`
}

func (HerbDiseaseAssociation) TableName() string { return "herb_disease_association" }
