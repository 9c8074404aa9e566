package messages

import (
	"encoding/json"
	"fmt"
)

// DeserializeInbound parses a client frame into an Inbound envelope.
// Frames without a playerId are rejected with ErrMissingPlayerID.
func DeserializeInbound(b []byte) (*Inbound, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty message")
	}
	m := &Inbound{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %v", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("message has no type")
	}
	if m.PlayerID == "" {
		return nil, ErrMissingPlayerID
	}
	return m, nil
}

// SerializeOutbound encodes an Outbound envelope for the wire.
func SerializeOutbound(m *Outbound) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %v", m.Type, err)
	}
	return b, nil
}
