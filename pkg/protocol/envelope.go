package protocol

// Event names carried in Envelope.Event.
const (
	JoinRoom         = "join-room"
	LeaveRoom        = "leave-room"
	SendMessage      = "send-message"
	MessageDelivered = "message-delivered"
	AckEvent         = "ack"

	ErrorEvent  = "error"
	RateLimited = "error.rate_limited"
	BadRequest  = "error.bad_request"
)

// Envelope is one websocket frame.
type Envelope struct {
	Event   string        `json:"event"`
	Ref     string        `json:"ref,omitempty"`
	Room    string        `json:"room,omitempty"`
	Message *Message      `json:"message,omitempty"`
	Ack     *Ack          `json:"ack,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// Ack answers a join-room request. Ref on the carrying envelope matches the
// request's Ref.
type Ack struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func AckOK() Ack { return Ack{OK: true} }

func AckFailed(reason string) Ack { return Ack{Reason: reason} }

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

func NewJoinRequest(ref, room string) *Envelope {
	return &Envelope{Event: JoinRoom, Ref: ref, Room: room}
}

func NewLeaveRequest(room string) *Envelope {
	return &Envelope{Event: LeaveRoom, Room: room}
}

func NewSendRequest(room string, msg Message) *Envelope {
	return &Envelope{Event: SendMessage, Room: room, Message: &msg}
}

func NewDelivered(room string, msg Message) *Envelope {
	return &Envelope{Event: MessageDelivered, Room: room, Message: &msg}
}

func NewAck(ref, room string, ack Ack) *Envelope {
	return &Envelope{Event: AckEvent, Ref: ref, Room: room, Ack: &ack}
}

func NewError(event, code, message string, retry bool) *Envelope {
	return &Envelope{
		Event: event,
		Error: &ErrorPayload{Code: code, Message: message, Retry: retry},
	}
}
