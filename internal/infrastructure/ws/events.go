package ws

import "encoding/json"

// Event is the wire envelope. Data is omitted for payload-less events like
// ENTER-SUCCESS.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// inboundEvent defers payload decoding until the type is known.
type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type EnterPayload struct {
	JWT    string `json:"JWT"`
	PeerID string `json:"PeerID"`
}

type MessagePayload struct {
	Message string `json:"message"`
}

type CallPayload struct {
	PeerID string `json:"peerId"`
}

type ErrorPayload struct {
	Error string `json:"Error"`
}

type ReceivedMessagePayload struct {
	Data     string `json:"Data"`
	Username string `json:"Username"`
}

type PeerDisconnectedPayload struct {
	PeerID string `json:"PeerID"`
}

func NewEnterSuccessEvent() *Event {
	return &Event{Type: EnterSuccess}
}

func NewErrorEvent(message string) *Event {
	return &Event{Type: ErrorEvent, Data: ErrorPayload{Error: message}}
}

func NewReceivedMessageEvent(data, username string) *Event {
	return &Event{Type: ReceivedMessage, Data: ReceivedMessagePayload{
		Data:     data,
		Username: username,
	}}
}

func NewCallRequestEvent(peerID string) *Event {
	return &Event{Type: CallRequest, Data: CallPayload{PeerID: peerID}}
}

func NewPeerDisconnectedEvent(peerID string) *Event {
	return &Event{Type: PeerDisconnected, Data: PeerDisconnectedPayload{PeerID: peerID}}
}
