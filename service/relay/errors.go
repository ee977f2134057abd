package relay

import (
	"github.com/sybui2004/SeaU-sub001/tools/errs"
)

// ErrUnknownEvent marks frames whose event name has no registered handler.
// Callers log and keep the connection alive; nothing goes back to the peer.
func ErrUnknownEvent(event string) error {
	return errs.ErrUnknownEvent.WrapMsg("", "event", event)
}

func ErrBadPayload(event string, cause error) error {
	return errs.ErrBadPayload.WrapMsg("", "event", event, "err", cause)
}
