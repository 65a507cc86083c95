package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tcm-diagnosis/models"
)

type memoryObjects struct {
	uploads   map[string][]byte
	rotations []string
	rotateErr error
}

func (m *memoryObjects) Upload(_ context.Context, key string, data []byte) (string, error) {
	if m.uploads == nil {
		m.uploads = make(map[string][]byte)
	}
	m.uploads[key] = data
	return "mem://" + key, nil
}

func (m *memoryObjects) Rotate(_ context.Context, prefix string, keep int) ([]string, error) {
	m.rotations = append(m.rotations, prefix)
	return nil, m.rotateErr
}

func TestExportService_Run(t *testing.T) {
	store := newTestStore(t)
	appendLogs(t, store,
		models.DiagnosisLog{UserID: 1, Prescription: "a", DiagnosisResult: `[{"name":"A","probability":1}]`},
		models.DiagnosisLog{UserID: 2, Prescription: "b", DiagnosisResult: `[{"name":"A","probability":0.5},{"name":"B","probability":0.5}]`},
	)
	objects := &memoryObjects{rotateErr: errors.New("list denied")}
	exp := NewExportService(NewHistoryService(store, zap.NewNop()), objects, 3, zap.NewNop())
	exp.now = func() time.Time { return time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC) }

	link, err := exp.Run(context.Background())
	require.NoError(t, err, "rotation failures must not fail the export")
	assert.Equal(t, "mem://exports/statistics-2024-06-01T03-00-00Z.json", link)
	assert.Equal(t, []string{"exports/"}, objects.rotations)

	var doc StatisticsExport
	require.NoError(t, json.Unmarshal(objects.uploads["exports/statistics-2024-06-01T03-00-00Z.json"], &doc))
	assert.Equal(t, map[string]int{"A": 2, "B": 1}, doc.Diseases)
	assert.True(t, doc.GeneratedAt.Equal(exp.now()))
}
