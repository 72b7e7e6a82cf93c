package types

import (
	"encoding/json"
	"fmt"
)

// MessageKind names a frame exchanged on the exposer websocket
type MessageKind string

const (
	KindEstablish    MessageKind = "Establish"
	KindAcknowledge  MessageKind = "Acknowledge"
	KindAddrRequest  MessageKind = "AddrRequest"
	KindAddrResponse MessageKind = "AddrResponse"
	KindError        MessageKind = "Error"
)

// Message is a single exposer frame.
//
// On the wire a message is externally tagged: payload-less kinds are encoded as a
// bare JSON string ("Acknowledge") and the others as a single-key object
// ({"Error":{"message":"..."}}).
type Message struct {
	Kind         MessageKind
	Establish    *Establish
	AddrResponse *AddrResponse
	Error        *ErrorMessage
}

// Establish opens an exposer session
type Establish struct {
	ID       string `json:"id" validate:"required,uuid"`
	Password string `json:"password" validate:"required"`
}

// AddrResponse carries the adapter addresses of a client
type AddrResponse struct {
	AdapterAddresses []AdapterAddress `json:"adapter_addresses" validate:"dive"`
}

// ErrorMessage reports a protocol level failure to the peer
type ErrorMessage struct {
	Message string `json:"message"`
}

// NewEstablish creates an Establish message
func NewEstablish(id, password string) Message {
	return Message{Kind: KindEstablish, Establish: &Establish{ID: id, Password: password}}
}

// NewAcknowledge creates an Acknowledge message
func NewAcknowledge() Message {
	return Message{Kind: KindAcknowledge}
}

// NewAddrRequest creates an AddrRequest message
func NewAddrRequest() Message {
	return Message{Kind: KindAddrRequest}
}

// NewAddrResponse creates an AddrResponse message
func NewAddrResponse(addresses []AdapterAddress) Message {
	if addresses == nil {
		addresses = []AdapterAddress{}
	}
	return Message{Kind: KindAddrResponse, AddrResponse: &AddrResponse{AdapterAddresses: addresses}}
}

// NewErrorMessage creates an Error message
func NewErrorMessage(msg string) Message {
	return Message{Kind: KindError, Error: &ErrorMessage{Message: msg}}
}

// ParseMessage decodes a text frame
func ParseMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// MarshalJSON implements json.Marshaler
func (m Message) MarshalJSON() ([]byte, error) {
	var (
		payload any
		missing bool
	)
	switch m.Kind {
	case KindAcknowledge, KindAddrRequest:
		return json.Marshal(string(m.Kind))
	case KindEstablish:
		payload, missing = m.Establish, m.Establish == nil
	case KindAddrResponse:
		payload, missing = m.AddrResponse, m.AddrResponse == nil
	case KindError:
		payload, missing = m.Error, m.Error == nil
	default:
		return nil, fmt.Errorf("unknown message kind %q", m.Kind)
	}

	if missing {
		return nil, fmt.Errorf("message %s has no payload", m.Kind)
	}
	return json.Marshal(map[string]any{string(m.Kind): payload})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Message) UnmarshalJSON(data []byte) error {
	var unit string
	if err := json.Unmarshal(data, &unit); err == nil {
		switch kind := MessageKind(unit); kind {
		case KindAcknowledge, KindAddrRequest:
			*m = Message{Kind: kind}
			return nil
		default:
			return fmt.Errorf("unknown message %q", unit)
		}
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("invalid message: expected exactly one variant, got %d", len(tagged))
	}

	for key, raw := range tagged {
		kind := MessageKind(key)
		out := Message{Kind: kind}
		var err error
		switch kind {
		case KindEstablish:
			out.Establish = &Establish{}
			err = json.Unmarshal(raw, out.Establish)
		case KindAddrResponse:
			out.AddrResponse = &AddrResponse{}
			err = json.Unmarshal(raw, out.AddrResponse)
		case KindError:
			out.Error = &ErrorMessage{}
			err = json.Unmarshal(raw, out.Error)
		default:
			return fmt.Errorf("unknown message %q", key)
		}
		if err != nil {
			return fmt.Errorf("invalid %s payload: %w", kind, err)
		}
		*m = out
	}

	return nil
}

// String returns the wire representation, for logging
func (m Message) String() string {
	data, err := json.Marshal(m)
	if err != nil {
		return string(m.Kind)
	}
	return string(data)
}
