package relay

import (
	"encoding/json"
	"time"

	"github.com/sybui2004/SeaU-sub001/service/storage"
	"github.com/sybui2004/SeaU-sub001/tools/errs"
)

// Inbound event names (client -> gateway).
const (
	EventAnnounce     = "connect-announce"
	EventSendMessage  = "send-message"
	EventNewGroupChat = "new-group-chat"
)

// Outbound event names (gateway -> client).
const (
	EventPresenceUpdate = "presence-update"
	EventReceiveMessage = "receive-message"
)

// Frame is the JSON envelope every event travels in, both directions.
// Data stays a raw map so relayed payloads pass through untouched.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.ErrBadFrame.WrapMsg("unmarshal", "err", err)
	}
	if f.Event == "" {
		return nil, errs.ErrBadFrame.WrapMsg("missing event name")
	}
	return f, nil
}

// MarshalFrame builds the wire bytes of one outbound event.
func MarshalFrame(event string, data any) ([]byte, error) {
	return json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Data: data})
}

// ---- inbound payloads ----

// AnnouncePayload binds the logical user identity to this connection.
// The gateway takes userId as-is; identity validation happens upstream.
type AnnouncePayload struct {
	UserID string `json:"userId"`
}

// MessagePayload is the addressing slice of a send-message event. The rest
// of the event data (text, attachments, timestamps) is relayed verbatim.
type MessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	ChatID     string `json:"chatId,omitempty"` // set => existing thread, fan out
}

// GroupChatPayload addresses a group-chat-created notice to one invitee.
type GroupChatPayload struct {
	CreatorID  string `json:"creatorId"`
	ReceiverID string `json:"receiverId"`
}

// ---- outbound payloads ----

// PresencePayload is the snapshot carried by every presence-update.
type PresencePayload struct {
	Users []storage.Entry `json:"users"`
	TS    int64           `json:"ts"`
}

func BuildPresenceFrame(entries []storage.Entry) ([]byte, error) {
	if entries == nil {
		entries = []storage.Entry{}
	}
	return MarshalFrame(EventPresenceUpdate, PresencePayload{
		Users: entries,
		TS:    time.Now().UnixMilli(),
	})
}
