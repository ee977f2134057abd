package handlers

import (
	"github.com/sybui2004/SeaU-sub001/service/relay"
)

// RegisterAll installs every inbound event handler on the server's
// dispatcher. Called once from main() before the listener starts.
func RegisterAll(s *relay.Server) {
	s.Disp().Register(NewAnnounceHandler())
	s.Disp().Register(NewMessageHandler())
	s.Disp().Register(NewGroupChatHandler())
}
