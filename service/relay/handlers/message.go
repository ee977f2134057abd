package handlers

import (
	"context"

	"github.com/sybui2004/SeaU-sub001/logger"
	"github.com/sybui2004/SeaU-sub001/service/relay"
	"github.com/sybui2004/SeaU-sub001/tools/decode"
)

// MessageHandler relays send-message events. Two delivery modes:
//
//   - chatId present: the sender is posting into an existing thread whose
//     membership this gateway does not track, so the frame goes to every
//     other connected client and the UI filters by thread membership.
//   - no chatId: plain one-to-one; resolve the receiver in the presence
//     store and queue the frame on each of their live connections.
//
// An offline receiver means the frame is dropped with no feedback to the
// sender; this layer gives no delivery guarantee.
type MessageHandler struct{}

func NewMessageHandler() relay.Handler { return &MessageHandler{} }

func (h *MessageHandler) Event() string { return relay.EventSendMessage }

func (h *MessageHandler) Handle(ctx context.Context, rc *relay.Context, f *relay.Frame, c *relay.Client) error {
	p, err := decode.Decode[relay.MessagePayload](f.Data)
	if err != nil {
		return relay.ErrBadPayload(f.Event, err)
	}

	// The relayed frame carries the original data untouched.
	payload, err := relay.MarshalFrame(relay.EventReceiveMessage, f.Data)
	if err != nil {
		return err
	}

	if p.ChatID != "" {
		rc.S.BroadcastExcept(c.ConnID, payload)
		return nil
	}

	if n := rc.S.DeliverToUser(ctx, p.ReceiverID, payload); n == 0 {
		logger.Debugf("[relay] receiver offline, drop message from=%s to=%s", p.SenderID, p.ReceiverID)
	}
	return nil
}
