package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"saldo/internal/core"
)

// ExportMessage asks the worker to export one month of metrics for a user.
// The worker recomputes the figures; the message carries only the coordinates.
type ExportMessage struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"user_id"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewExportMessage(userID string, year, month int) *ExportMessage {
	return &ExportMessage{
		ID:          uuid.New(),
		UserID:      userID,
		Year:        year,
		Month:       month,
		RequestedAt: time.Now().UTC(),
	}
}

// Validate rejects messages no handler could ever process.
func (m *ExportMessage) Validate() error {
	if m.ID == uuid.Nil {
		return errors.New("missing message id")
	}
	if m.UserID == "" {
		return errors.New("missing user id")
	}
	return core.ValidateYearMonth(m.Year, m.Month)
}

func (m *ExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportMessageFromJSON decodes and validates a message body.
func ExportMessageFromJSON(data []byte) (*ExportMessage, error) {
	var msg ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export message: %w", err)
	}
	return &msg, nil
}
