package models

import "time"

// DiagnosisLog protokolliert eine Inferenz-Anfrage samt serialisiertem Ergebnis.
// Einträge werden nur angehängt, nie verändert.
type DiagnosisLog struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	UserID       uint   `json:"user_id" gorm:"index;not null"`
	Prescription string `json:"prescription" gorm:"size:500;not null"`
	// JSON-Liste aus {name, probability}, siehe diagnosis.EncodeResult
	DiagnosisResult string    `json:"diagnosis_result" gorm:"type:text;not null"`
	Timestamp       time.Time `json:"timestamp" gorm:"index;autoCreateTime"`
}

// TableName gibt explizit den Tabellennamen an.
func (DiagnosisLog) TableName() string {
	return "diagnosis_logs"
}
