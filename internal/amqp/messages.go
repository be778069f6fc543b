package amqp

import (
	"encoding/json"
	"time"
)

// SessionEventMessage is the wire form of a session change published by
// the external authentication service. A message without a user id means
// the session ended.
type SessionEventMessage struct {
	Present   bool      `json:"present"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DayExportMessage asks the export worker to push one closed day to the
// spreadsheet. It carries only identifiers; the worker fetches the full
// record from the store.
type DayExportMessage struct {
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Timestamp time.Time `json:"timestamp"`
}

func NewDayExportMessage(userID, date string) *DayExportMessage {
	return &DayExportMessage{
		UserID:    userID,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *DayExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DayExportMessageFromJSON(data []byte) (*DayExportMessage, error) {
	var msg DayExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func SessionEventMessageFromJSON(data []byte) (*SessionEventMessage, error) {
	var msg SessionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
