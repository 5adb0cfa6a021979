package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseExportMessage asks the worker to export one recorded gasto.
// It carries only the id; the worker fetches the full row from the store,
// so a stale message can never overwrite newer data.
type ExpenseExportMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseExportMessage(id, version int64) *ExpenseExportMessage {
	return &ExpenseExportMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseExportMessageFromJSON(data []byte) (*ExpenseExportMessage, error) {
	var msg ExpenseExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
