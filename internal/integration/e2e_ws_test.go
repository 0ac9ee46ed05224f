package integration

import (
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"rainet_server/internal/config"
	"rainet_server/internal/game"
	apphttp "rainet_server/internal/http"
	"rainet_server/internal/protocol"
	"rainet_server/internal/repository"
	"rainet_server/internal/service"
	"rainet_server/internal/ws"
)

func e2eServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:        "e2e-secret",
		RequireLogin:     false,
		KeepAlive:        5 * time.Second,
		DeployTimeout:    time.Minute,
		TurnTimeout:      time.Minute,
		IdleTimeout:      time.Minute,
		FirewallStrength: 2,
		StalemateLoses:   true,
		ConnRateLimit:    1000,
		ConnRateWindow:   time.Minute,
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryUserStore()
	tokens := service.NewTokenService(cfg.JWTSecret)
	ratings := service.NewRatingService(store, log)
	hub := ws.NewHub(cfg, store, tokens, ratings, log)

	r := gin.New()
	apphttp.RegisterRoutes(r, hub, nil, cfg)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// wsClient speaks the wire protocol over a real websocket.
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	priv *rsa.PrivateKey
	env  *protocol.Envelope
}

func dialClient(t *testing.T, srv *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &wsClient{t: t, conn: conn}
	var info struct {
		RequiresLogin bool `json:"requires_login"`
	}
	c.expect(protocol.PacketServerInfo, &info)
	return c
}

func (c *wsClient) send(typ protocol.PacketType, payload any) {
	c.t.Helper()
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			c.t.Fatal(err)
		}
	}
	frame, err := protocol.Frame(typ, body, c.env)
	if err != nil {
		c.t.Fatal(err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.t.Fatal(err)
	}
}

// expect reads frames until one of the wanted type arrives, skipping
// keep-alive probes.
func (c *wsClient) expect(want protocol.PacketType, out any) {
	c.t.Helper()
	for {
		c.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("read while waiting for %v: %v", want, err)
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		typ, body, err := protocol.Parse(data, c.env)
		if err != nil {
			c.t.Fatalf("parse frame: %v", err)
		}
		if typ == protocol.PacketKeepAlive {
			continue
		}
		if typ != want {
			c.t.Fatalf("got packet %v; want %v", typ, want)
		}
		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				c.t.Fatalf("decode %v body: %v", typ, err)
			}
		}
		return
	}
}

func (c *wsClient) handshakeAndLogin(name string) {
	c.t.Helper()
	priv, err := protocol.NewClientKey()
	if err != nil {
		c.t.Fatal(err)
	}
	c.priv = priv
	der, err := protocol.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		c.t.Fatal(err)
	}
	c.send(protocol.PacketPublicKey, ws.PublicKeyPayload{Key: der})

	var sealed ws.SessionKeyPayload
	c.expect(protocol.PacketPublicKey, &sealed)
	key, err := protocol.OpenSessionKey(priv, sealed.SealedKey)
	if err != nil {
		c.t.Fatal(err)
	}
	c.env, err = protocol.NewEnvelope(key)
	if err != nil {
		c.t.Fatal(err)
	}

	c.send(protocol.PacketClientLogin, ws.LoginPayload{Name: name})
	var reply ws.LoginReply
	c.expect(protocol.PacketClientLogin, &reply)
	if reply.Code != ws.AuthOK {
		c.t.Fatalf("login code = %d", reply.Code)
	}
}

func (c *wsClient) command(mv game.Move) (game.SyncState, ws.CommandReply) {
	c.t.Helper()
	c.send(protocol.PacketGameCommand, ws.CommandPayload{Move: mv})
	var st game.SyncState
	c.expect(protocol.PacketGameSync, &st)
	var reply ws.CommandReply
	c.expect(protocol.PacketGameCommand, &reply)
	if reply.Code != int(game.RejectNone) {
		c.t.Fatalf("command %v rejected: %+v", mv, reply)
	}
	return st, reply
}

func fwd(fromX, fromY, toX, toY int) game.Move {
	return game.Move{
		Kind: game.MoveStep,
		From: game.Position{X: fromX, Y: fromY},
		To:   game.Position{X: toX, Y: toY},
	}
}

func TestFullMatchOverWebsocket(t *testing.T) {
	srv := e2eServer(t)

	host := dialClient(t, srv)
	host.handshakeAndLogin("alice")
	guest := dialClient(t, srv)
	guest.handshakeAndLogin("bob")

	host.send(protocol.PacketCreateGame, ws.CreateGamePayload{Name: "e2e"})
	var created ws.CreateGameReply
	host.expect(protocol.PacketCreateGame, &created)
	if created.Code != ws.LobbyOK {
		t.Fatalf("create reply = %+v", created)
	}

	guest.send(protocol.PacketListGames, nil)
	var list ws.GameListPayload
	guest.expect(protocol.PacketListGames, &list)
	if len(list.Games) != 1 || list.Games[0].ID != created.ID {
		t.Fatalf("game list = %+v", list.Games)
	}

	guest.send(protocol.PacketJoinGame, ws.JoinGamePayload{ID: created.ID})
	var joined ws.JoinReply
	guest.expect(protocol.PacketJoinGame, &joined)
	if joined.Code != ws.LobbyOK || joined.Seat != 2 || joined.Opponent != "alice" {
		t.Fatalf("join reply = %+v", joined)
	}
	var hostNote ws.JoinReply
	host.expect(protocol.PacketJoinGame, &hostNote)
	if hostNote.Opponent != "bob" {
		t.Fatalf("host notification = %+v", hostNote)
	}

	// Deployment: field i takes stack slot i, links on the first four
	// fields for both seats.
	order := []int{0, 1, 2, 3, 4, 5, 6, 7}
	host.send(protocol.PacketGameInit, ws.GameInitPayload{Order: order})
	var initReply ws.CommandReply
	host.expect(protocol.PacketGameInit, &initReply)
	if initReply.Code != int(game.RejectNone) {
		t.Fatalf("host deploy = %+v", initReply)
	}

	guest.send(protocol.PacketGameInit, ws.GameInitPayload{Order: order})
	var guestSync game.SyncState
	guest.expect(protocol.PacketGameSync, &guestSync)
	guest.expect(protocol.PacketGameInit, &initReply)
	var hostSync game.SyncState
	host.expect(protocol.PacketGameSync, &hostSync)
	if hostSync.Phase != "in_progress" || hostSync.You != 1 || hostSync.Turn != 1 {
		t.Fatalf("host opening sync = %+v", hostSync)
	}
	if guestSync.You != 2 {
		t.Fatalf("guest opening sync = %+v", guestSync)
	}

	// Host marches the column-3 link to the far exit while the guest
	// shuffles a card on the home file. Every sync the guest sees along
	// the way must keep unrevealed host cards hidden.
	hostMoves := []game.Move{
		fwd(3, 1, 3, 2), fwd(3, 2, 3, 3), fwd(3, 3, 3, 4),
		fwd(3, 4, 3, 5), fwd(3, 5, 3, 6), fwd(3, 6, 3, 7),
	}
	guestMoves := []game.Move{
		fwd(0, 7, 0, 6), fwd(0, 6, 0, 7), fwd(0, 7, 0, 6),
		fwd(0, 6, 0, 7), fwd(0, 7, 0, 6),
	}

	var final game.SyncState
	for i, mv := range hostMoves {
		st, _ := host.command(mv)
		guest.expect(protocol.PacketGameSync, &guestSync)

		for _, cell := range guestSync.Cells {
			c := cell.Card
			if c != nil && c.Kind == "online" && c.Owner == 1 && !c.Revealed && c.Type != "hidden" {
				t.Fatalf("guest sync leaks host card type %q at %v", c.Type, cell.Pos)
			}
		}

		if i == len(hostMoves)-1 {
			final = st
			break
		}
		_, _ = guest.command(guestMoves[i])
		host.expect(protocol.PacketGameSync, &hostSync)
	}

	if final.Phase != "finished" || final.Winner != 1 || final.Reason != game.ReasonGameComplete {
		t.Fatalf("final sync = %+v", final)
	}
	if guestSync.Winner != 1 || guestSync.Reason != game.ReasonGameComplete {
		t.Fatalf("guest final sync = %+v", guestSync)
	}
}

func TestRematchOverWebsocket(t *testing.T) {
	srv := e2eServer(t)

	host := dialClient(t, srv)
	host.handshakeAndLogin("alice")
	guest := dialClient(t, srv)
	guest.handshakeAndLogin("bob")

	host.send(protocol.PacketCreateGame, ws.CreateGamePayload{})
	var created ws.CreateGameReply
	host.expect(protocol.PacketCreateGame, &created)
	guest.send(protocol.PacketJoinGame, ws.JoinGamePayload{ID: created.ID})
	var joined ws.JoinReply
	guest.expect(protocol.PacketJoinGame, &joined)
	var hostNote ws.JoinReply
	host.expect(protocol.PacketJoinGame, &hostNote)

	order := []int{0, 1, 2, 3, 4, 5, 6, 7}
	var initReply ws.CommandReply
	host.send(protocol.PacketGameInit, ws.GameInitPayload{Order: order})
	host.expect(protocol.PacketGameInit, &initReply)
	guest.send(protocol.PacketGameInit, ws.GameInitPayload{Order: order})
	var sync game.SyncState
	guest.expect(protocol.PacketGameSync, &sync)
	guest.expect(protocol.PacketGameInit, &initReply)
	host.expect(protocol.PacketGameSync, &sync)

	// Guest resigns, then both ask for a rematch.
	guest.send(protocol.PacketExitGame, nil)
	guest.expect(protocol.PacketGameSync, &sync)
	var exitReply ws.CommandReply
	guest.expect(protocol.PacketExitGame, &exitReply)
	host.expect(protocol.PacketGameSync, &sync)
	if sync.Phase != "finished" || sync.Winner != 1 {
		t.Fatalf("post-resign sync = %+v", sync)
	}

	host.send(protocol.PacketRematch, nil)
	var rematch ws.RematchReply
	host.expect(protocol.PacketRematch, &rematch)
	if rematch.Accepted {
		t.Fatal("rematch accepted with one agreement")
	}
}
