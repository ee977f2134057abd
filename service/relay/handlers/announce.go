package handlers

import (
	"context"

	"github.com/sybui2004/SeaU-sub001/service/relay"
	"github.com/sybui2004/SeaU-sub001/tools/decode"
)

// AnnounceHandler binds the peer's declared identity to its connection and
// triggers the presence broadcast. The userId is accepted as-is, empty
// included; identity checks belong to the upstream auth layer.
type AnnounceHandler struct{}

func NewAnnounceHandler() relay.Handler { return &AnnounceHandler{} }

func (h *AnnounceHandler) Event() string { return relay.EventAnnounce }

func (h *AnnounceHandler) Handle(ctx context.Context, rc *relay.Context, f *relay.Frame, c *relay.Client) error {
	p := &relay.AnnouncePayload{}
	if f.Data != nil {
		var err error
		p, err = decode.Decode[relay.AnnouncePayload](f.Data)
		if err != nil {
			return relay.ErrBadPayload(f.Event, err)
		}
	}
	return rc.S.Announce(ctx, p.UserID, c)
}
