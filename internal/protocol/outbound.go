package protocol

import (
	"encoding/json"
	"fmt"
)

// OutboundType identifies a message sent by the robot.
type OutboundType string

const (
	TypeStatus    OutboundType = "status"
	TypeHeartbeat OutboundType = "heartbeat"
)

// Outbound is the only message shape the robot sends.
type Outbound struct {
	Type      OutboundType `json:"type"`
	Status    string       `json:"status,omitempty"`
	DeviceID  string       `json:"device_id"`
	Timestamp int64        `json:"timestamp"` // milliseconds on the device clock
}

// NewStatusMessage builds a status report.
func NewStatusMessage(deviceID, status string, timestampMs int64) Outbound {
	return Outbound{
		Type:      TypeStatus,
		Status:    status,
		DeviceID:  deviceID,
		Timestamp: timestampMs,
	}
}

// NewHeartbeatMessage builds a liveness heartbeat.
func NewHeartbeatMessage(deviceID string, timestampMs int64) Outbound {
	return Outbound{
		Type:      TypeHeartbeat,
		DeviceID:  deviceID,
		Timestamp: timestampMs,
	}
}

// Bytes returns the JSON-encoded message
func (m Outbound) Bytes() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", m.Type, err)
	}
	return data, nil
}
