package relay_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sybui2004/SeaU-sub001/service/relay"
	"github.com/sybui2004/SeaU-sub001/service/relay/handlers"
	"github.com/sybui2004/SeaU-sub001/service/storage"
)

func newTestServer(t *testing.T) *relay.Server {
	t.Helper()
	srv := relay.NewServer("test-node", storage.NewMemoryStore(), relay.ServerConf{})
	handlers.RegisterAll(srv)
	t.Cleanup(srv.Close)
	return srv
}

// connect simulates a transport-open: registered, not yet announced.
func connect(srv *relay.Server, connID string) *relay.Client {
	c := relay.NewClient(connID, nil, 16)
	srv.Reg().Add(c)
	return c
}

func handle(t *testing.T, srv *relay.Server, c *relay.Client, format string, args ...any) {
	t.Helper()
	srv.HandleFrame(context.Background(), []byte(fmt.Sprintf(format, args...)), c)
}

func announce(t *testing.T, srv *relay.Server, c *relay.Client, userID string) {
	t.Helper()
	handle(t, srv, c, `{"event":"connect-announce","data":{"userId":%q}}`, userID)
}

func recvFrame(t *testing.T, c *relay.Client) *relay.Frame {
	t.Helper()
	select {
	case raw := <-c.Send:
		f, err := relay.ParseFrame(raw)
		if err != nil {
			t.Fatalf("conn %s received unparseable frame %q: %v", c.ConnID, raw, err)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("conn %s received no frame", c.ConnID)
		return nil
	}
}

func expectEvent(t *testing.T, c *relay.Client, event string) *relay.Frame {
	t.Helper()
	f := recvFrame(t, c)
	if f.Event != event {
		t.Fatalf("conn %s got event %q, want %q", c.ConnID, f.Event, event)
	}
	return f
}

func expectSilence(t *testing.T, c *relay.Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("conn %s unexpectedly received %q", c.ConnID, raw)
	case <-time.After(150 * time.Millisecond):
	}
}

func presenceUsers(t *testing.T, f *relay.Frame) []storage.Entry {
	t.Helper()
	var p relay.PresencePayload
	b, _ := json.Marshal(f.Data)
	if err := json.Unmarshal(b, &p); err != nil {
		t.Fatalf("presence payload unmarshal failed: %v", err)
	}
	return p.Users
}

func TestAnnounce_BroadcastsPresenceToEveryone(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	b := connect(srv, "cb")

	announce(t, srv, a, "alice")

	// Unannounced connections are still connected clients and get the update.
	for _, c := range []*relay.Client{a, b} {
		f := expectEvent(t, c, relay.EventPresenceUpdate)
		users := presenceUsers(t, f)
		if len(users) != 1 || users[0].UserID != "alice" || users[0].ConnID != "ca" {
			t.Fatalf("conn %s presence = %+v", c.ConnID, users)
		}
	}

	announce(t, srv, b, "bob")
	for _, c := range []*relay.Client{a, b} {
		f := expectEvent(t, c, relay.EventPresenceUpdate)
		if users := presenceUsers(t, f); len(users) != 2 {
			t.Fatalf("conn %s presence = %+v, want two entries", c.ConnID, users)
		}
	}
}

func TestAnnounce_DuplicateIsNoop(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")

	announce(t, srv, a, "alice")
	expectEvent(t, a, relay.EventPresenceUpdate)

	// Re-announce on the same connection: no new broadcast.
	announce(t, srv, a, "alice")
	expectSilence(t, a)
}

func TestDirectMessage_ReachesOnlyReceiver(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	b := connect(srv, "cb")
	announce(t, srv, a, "alice")
	announce(t, srv, b, "bob")
	expectEvent(t, a, relay.EventPresenceUpdate)
	expectEvent(t, a, relay.EventPresenceUpdate)
	expectEvent(t, b, relay.EventPresenceUpdate)
	expectEvent(t, b, relay.EventPresenceUpdate)

	handle(t, srv, a, `{"event":"send-message","data":{"senderId":"alice","receiverId":"bob","text":"hi bob"}}`)

	f := expectEvent(t, b, relay.EventReceiveMessage)
	if f.Data["text"] != "hi bob" || f.Data["senderId"] != "alice" {
		t.Fatalf("relayed payload = %+v", f.Data)
	}
	expectSilence(t, a)
}

func TestDirectMessage_AllReceiverDevices(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	b1 := connect(srv, "cb1")
	b2 := connect(srv, "cb2")
	announce(t, srv, a, "alice")
	announce(t, srv, b1, "bob")
	announce(t, srv, b2, "bob")
	for _, cl := range []*relay.Client{a, b1, b2} {
		for i := 0; i < 3; i++ {
			expectEvent(t, cl, relay.EventPresenceUpdate)
		}
	}

	handle(t, srv, a, `{"event":"send-message","data":{"senderId":"alice","receiverId":"bob","text":"hi"}}`)

	// Multi-device: both of bob's sessions receive the message.
	expectEvent(t, b1, relay.EventReceiveMessage)
	expectEvent(t, b2, relay.EventReceiveMessage)
	expectSilence(t, a)
}

func TestThreadMessage_FansOutExceptSender(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	b := connect(srv, "cb")
	c := connect(srv, "cc")
	announce(t, srv, a, "alice")
	announce(t, srv, b, "bob")
	announce(t, srv, c, "carol")
	for _, cl := range []*relay.Client{a, b, c} {
		for i := 0; i < 3; i++ {
			expectEvent(t, cl, relay.EventPresenceUpdate)
		}
	}

	handle(t, srv, a, `{"event":"send-message","data":{"senderId":"alice","receiverId":"bob","chatId":"t42","text":"all hands"}}`)

	// receiverId is not the routing key once a thread marker is present:
	// every other connected client gets it, the sender's connection none.
	for _, cl := range []*relay.Client{b, c} {
		f := expectEvent(t, cl, relay.EventReceiveMessage)
		if f.Data["chatId"] != "t42" {
			t.Fatalf("conn %s payload = %+v", cl.ConnID, f.Data)
		}
	}
	expectSilence(t, a)
}

func TestDirectMessage_OfflineReceiverDroppedSilently(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	announce(t, srv, a, "alice")
	expectEvent(t, a, relay.EventPresenceUpdate)

	handle(t, srv, a, `{"event":"send-message","data":{"senderId":"alice","receiverId":"bob","text":"anyone?"}}`)

	// No delivery, no error frame back to the sender.
	expectSilence(t, a)
}

func TestGroupChatNotice_OnlineInvitee(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	b := connect(srv, "cb")
	announce(t, srv, a, "alice")
	announce(t, srv, b, "bob")
	expectEvent(t, a, relay.EventPresenceUpdate)
	expectEvent(t, a, relay.EventPresenceUpdate)
	expectEvent(t, b, relay.EventPresenceUpdate)
	expectEvent(t, b, relay.EventPresenceUpdate)

	handle(t, srv, a, `{"event":"new-group-chat","data":{"creatorId":"alice","receiverId":"bob","groupChat":{"name":"weekend"}}}`)

	f := expectEvent(t, b, relay.EventNewGroupChat)
	gc, ok := f.Data["groupChat"].(map[string]any)
	if !ok || gc["name"] != "weekend" {
		t.Fatalf("notice payload = %+v", f.Data)
	}
	expectSilence(t, a)
}

func TestGroupChatNotice_OfflineInviteeKeepsProcessResponsive(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	announce(t, srv, a, "alice")
	expectEvent(t, a, relay.EventPresenceUpdate)

	handle(t, srv, a, `{"event":"new-group-chat","data":{"creatorId":"alice","receiverId":"bob","groupChat":{"name":"weekend"}}}`)
	expectSilence(t, a)

	// Still serving events afterwards.
	b := connect(srv, "cb")
	announce(t, srv, b, "bob")
	expectEvent(t, a, relay.EventPresenceUpdate)
	expectEvent(t, b, relay.EventPresenceUpdate)
}

func TestDisconnect_BroadcastsShrunkenPresence(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	b := connect(srv, "cb")
	announce(t, srv, a, "alice")
	announce(t, srv, b, "bob")
	expectEvent(t, a, relay.EventPresenceUpdate)
	expectEvent(t, a, relay.EventPresenceUpdate)
	expectEvent(t, b, relay.EventPresenceUpdate)
	expectEvent(t, b, relay.EventPresenceUpdate)

	srv.Disconnect(context.Background(), a)

	f := expectEvent(t, b, relay.EventPresenceUpdate)
	users := presenceUsers(t, f)
	if len(users) != 1 || users[0].UserID != "bob" {
		t.Fatalf("presence after disconnect = %+v", users)
	}
}

func TestDisconnect_BeforeAnnounceIsQuiet(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	b := connect(srv, "cb")
	announce(t, srv, b, "bob")
	expectEvent(t, b, relay.EventPresenceUpdate)

	// a never announced; its disconnect must not broadcast anything.
	srv.Disconnect(context.Background(), a)
	expectSilence(t, b)
}

func TestDisconnect_OneDeviceKeepsTheOther(t *testing.T) {
	srv := newTestServer(t)
	b1 := connect(srv, "cb1")
	b2 := connect(srv, "cb2")
	announce(t, srv, b1, "bob")
	announce(t, srv, b2, "bob")
	expectEvent(t, b1, relay.EventPresenceUpdate)
	expectEvent(t, b1, relay.EventPresenceUpdate)
	expectEvent(t, b2, relay.EventPresenceUpdate)
	expectEvent(t, b2, relay.EventPresenceUpdate)

	srv.Disconnect(context.Background(), b1)

	f := expectEvent(t, b2, relay.EventPresenceUpdate)
	users := presenceUsers(t, f)
	if len(users) != 1 || users[0].ConnID != "cb2" {
		t.Fatalf("presence after one-device disconnect = %+v", users)
	}
}

func TestBadAndUnknownFramesAreIgnored(t *testing.T) {
	srv := newTestServer(t)
	a := connect(srv, "ca")
	announce(t, srv, a, "alice")
	expectEvent(t, a, relay.EventPresenceUpdate)

	handle(t, srv, a, `this is not json`)
	handle(t, srv, a, `{"event":"no-such-event","data":{}}`)
	handle(t, srv, a, `{"event":"send-message","data":{"receiverId":{"nested":"junk"}}}`)
	expectSilence(t, a)

	// The connection is still serviced.
	b := connect(srv, "cb")
	announce(t, srv, b, "bob")
	expectEvent(t, a, relay.EventPresenceUpdate)
	expectEvent(t, b, relay.EventPresenceUpdate)
}

type captivePublisher struct {
	events chan relay.PresenceEvent
}

func (p *captivePublisher) Publish(_ context.Context, ev relay.PresenceEvent) error {
	p.events <- ev
	return nil
}

func TestPresencePublisher_SeesOnlineAndOffline(t *testing.T) {
	srv := newTestServer(t)
	pub := &captivePublisher{events: make(chan relay.PresenceEvent, 8)}
	srv.SetPublisher(pub)

	a := connect(srv, "ca")
	announce(t, srv, a, "alice")
	expectEvent(t, a, relay.EventPresenceUpdate)

	ev := <-pub.events
	if ev.Kind != "online" || ev.UserID != "alice" || ev.ConnID != "ca" || ev.NodeID != "test-node" {
		t.Fatalf("online event = %+v", ev)
	}

	srv.Disconnect(context.Background(), a)
	ev = <-pub.events
	if ev.Kind != "offline" || ev.ConnID != "ca" {
		t.Fatalf("offline event = %+v", ev)
	}
}
