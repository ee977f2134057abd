package handlers

import (
	"context"

	"github.com/sybui2004/SeaU-sub001/logger"
	"github.com/sybui2004/SeaU-sub001/service/relay"
	"github.com/sybui2004/SeaU-sub001/tools/decode"
)

// GroupChatHandler forwards the group-chat-created notice to the invitee.
// One target user per event; the creator emits one event per invitee.
// Offline invitees simply miss the notice, they pick the group up from the
// data layer on next load.
type GroupChatHandler struct{}

func NewGroupChatHandler() relay.Handler { return &GroupChatHandler{} }

func (h *GroupChatHandler) Event() string { return relay.EventNewGroupChat }

func (h *GroupChatHandler) Handle(ctx context.Context, rc *relay.Context, f *relay.Frame, c *relay.Client) error {
	p, err := decode.Decode[relay.GroupChatPayload](f.Data)
	if err != nil {
		return relay.ErrBadPayload(f.Event, err)
	}

	payload, err := relay.MarshalFrame(relay.EventNewGroupChat, f.Data)
	if err != nil {
		return err
	}

	if n := rc.S.DeliverToUser(ctx, p.ReceiverID, payload); n == 0 {
		logger.Debugf("[relay] invitee offline, drop group notice creator=%s to=%s", p.CreatorID, p.ReceiverID)
	}
	return nil
}
