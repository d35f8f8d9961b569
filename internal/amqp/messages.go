package amqp

import (
	"encoding/json"
	"time"
)

// ExportRequestMessage asks the worker to run one export job. It carries
// only the job id and key; the worker loads the job row from the database.
type ExportRequestMessage struct {
	JobID     int64     `json:"job_id"`
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExportRequestMessage(jobID int64, key string) *ExportRequestMessage {
	return &ExportRequestMessage{
		JobID:     jobID,
		Key:       key,
		Timestamp: time.Now(),
	}
}

func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
