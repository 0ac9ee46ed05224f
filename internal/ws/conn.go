package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rainet_server/internal/domain"
	"rainet_server/internal/game"
	"rainet_server/internal/protocol"
	"rainet_server/internal/repository"
)

// State is the protocol lifecycle of one connection.
type State int

const (
	StateUnauthenticated State = iota
	StateKeyExchanged
	// StateLoggedIn and StateInLobby coincide on the server: lobby
	// operations open up the moment the login reply goes out.
	StateLoggedIn
	StateInLobby
	StateInGame
)

const maxAuthFails = 3

var errProtocol = errors.New("protocol error")

type frameWriter interface {
	WriteFrame(frame []byte) error
	Close()
}

// Conn is the protocol state machine for one connection. All packet
// handling runs on the connection's read goroutine; outbound writes go
// through the buffered frame writer and are safe from any goroutine
// (game sync callbacks arrive from the peer's read goroutine).
type Conn struct {
	hub *Hub
	w   frameWriter
	log *slog.Logger

	env       *protocol.Envelope
	state     State
	user      string
	rating    int
	authFails int

	sess *game.Session
	seat int
}

func NewConn(hub *Hub, w frameWriter) *Conn {
	return &Conn{hub: hub, w: w, log: hub.log.With("conn", fmt.Sprintf("%p", w))}
}

// onConnect pushes ServerInfo in the clear before anything else.
func (c *Conn) onConnect() {
	c.sendPacket(protocol.PacketServerInfo, ServerInfoPayload{
		RequiresLogin: c.hub.cfg.RequireLogin,
	})
}

// onDisconnect runs exactly once when the transport dies. A drop while
// in a running game forfeits the seat; a drop in the lobby or in an
// unstarted game just frees the slot.
func (c *Conn) onDisconnect() {
	if c.sess != nil {
		c.hub.Leave(c, game.ReasonForfeit)
	}
	if c.user != "" {
		c.log.Info("player disconnected", "player", c.user)
	}
}

// HandleFrame processes one inbound frame. A non-nil error closes the
// connection (ProtocolError semantics).
func (c *Conn) HandleFrame(frame []byte) error {
	t, body, err := protocol.Parse(frame, c.env)
	if err != nil {
		return fmt.Errorf("%w: %v", errProtocol, err)
	}
	PacketsTotal.WithLabelValues(t.String(), "in").Inc()

	if t == protocol.PacketKeepAlive {
		return nil // client echo, read deadline already advanced
	}

	if t.RequiresLogin() && c.state < StateInLobby {
		return fmt.Errorf("%w: %s before login", errProtocol, t)
	}

	switch t {
	case protocol.PacketPublicKey:
		return c.handleKeyExchange(body)
	case protocol.PacketClientLogin:
		return c.handleLogin(body)
	case protocol.PacketListGames:
		return c.handleListGames()
	case protocol.PacketCreateGame:
		return c.handleCreateGame(body)
	case protocol.PacketJoinGame:
		return c.handleJoinGame(body)
	case protocol.PacketGameInit:
		return c.handleGameInit(body)
	case protocol.PacketGameCommand:
		return c.handleGameCommand(body)
	case protocol.PacketExitGame:
		return c.handleExitGame()
	case protocol.PacketRematch:
		return c.handleRematch()
	default:
		return fmt.Errorf("%w: unexpected tag 0x%02X", errProtocol, byte(t))
	}
}

func (c *Conn) handleKeyExchange(body []byte) error {
	if c.state != StateUnauthenticated {
		return fmt.Errorf("%w: repeated key exchange", errProtocol)
	}

	var p PublicKeyPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: %v", errProtocol, err)
	}
	key, sealed, err := protocol.SealSessionKey(p.Key)
	if err != nil {
		return fmt.Errorf("%w: %v", errProtocol, err)
	}

	// Reply goes out before the envelope switches on; the PublicKey
	// tag is never sealed either way.
	c.sendPacket(protocol.PacketPublicKey, SessionKeyPayload{SealedKey: sealed})

	env, err := protocol.NewEnvelope(key)
	if err != nil {
		return err
	}
	c.env = env
	c.state = StateKeyExchanged
	return nil
}

func (c *Conn) handleLogin(body []byte) error {
	if c.state != StateKeyExchanged {
		return fmt.Errorf("%w: login in state %d", errProtocol, c.state)
	}

	var p LoginPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: %v", errProtocol, err)
	}

	code, reply := c.tryLogin(p)
	LoginsTotal.WithLabelValues(loginResultLabel(code)).Inc()
	c.sendPacket(protocol.PacketClientLogin, reply)

	if code != AuthOK {
		c.authFails++
		if c.authFails >= maxAuthFails {
			return fmt.Errorf("%w: too many failed logins", errProtocol)
		}
		return nil
	}

	c.user = p.Name
	if p.Token != "" {
		c.user = reply.tokenName
	}
	c.rating = reply.Rating
	c.state = StateInLobby
	c.log = c.log.With("player", c.user)
	c.log.Info("login ok", "rating", c.rating)
	return nil
}

// loginOutcome is LoginReply plus the name a rejoin token resolved to.
type loginOutcome struct {
	LoginReply
	tokenName string
}

func (c *Conn) tryLogin(p LoginPayload) (int, loginOutcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store := c.hub.store

	// Rejoin token replaces credentials entirely.
	if p.Token != "" {
		name, err := c.hub.tokens.Parse(p.Token)
		if err != nil {
			return AuthBadToken, loginOutcome{LoginReply: LoginReply{Code: AuthBadToken}}
		}
		rating, _ := store.GetRating(ctx, name)
		token, _ := c.hub.tokens.Generate(name)
		return AuthOK, loginOutcome{
			LoginReply: LoginReply{Code: AuthOK, Token: token, Rating: rating},
			tokenName:  name,
		}
	}

	if !repository.ValidUserName(p.Name) {
		return AuthBadName, loginOutcome{LoginReply: LoginReply{Code: AuthBadName}}
	}

	if !c.hub.cfg.RequireLogin {
		// Open mode: any name, password ignored.
		if mem, ok := store.(*repository.MemoryUserStore); ok {
			mem.Ensure(p.Name)
		}
		rating, err := store.GetRating(ctx, p.Name)
		if err != nil {
			rating = domain.DefaultRating
		}
		token, _ := c.hub.tokens.Generate(p.Name)
		return AuthOK, loginOutcome{LoginReply: LoginReply{Code: AuthOK, Token: token, Rating: rating}}
	}

	switch store.CheckLogin(ctx, p.Name, p.Password) {
	case domain.LoginOK:
	case domain.LoginInvalidUser:
		return AuthInvalidUser, loginOutcome{LoginReply: LoginReply{Code: AuthInvalidUser}}
	case domain.LoginInvalidPassword:
		return AuthInvalidPassword, loginOutcome{LoginReply: LoginReply{Code: AuthInvalidPassword}}
	default:
		// Transient store trouble aborts the attempt, not the session.
		return AuthStoreError, loginOutcome{LoginReply: LoginReply{Code: AuthStoreError}}
	}

	must, _ := store.MustChangePassword(ctx, p.Name)
	rating, err := store.GetRating(ctx, p.Name)
	if err != nil {
		rating = domain.DefaultRating
	}
	token, _ := c.hub.tokens.Generate(p.Name)
	return AuthOK, loginOutcome{LoginReply: LoginReply{
		Code: AuthOK, MustChangePassword: must, Token: token, Rating: rating,
	}}
}

func loginResultLabel(code int) string {
	switch code {
	case AuthOK:
		return "ok"
	case AuthStoreError:
		return "store_error"
	default:
		return "rejected"
	}
}

func (c *Conn) handleListGames() error {
	c.sendPacket(protocol.PacketListGames, GameListPayload{Games: c.hub.ListGames()})
	return nil
}

func (c *Conn) handleCreateGame(body []byte) error {
	var p CreateGamePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: %v", errProtocol, err)
	}
	if c.sess != nil {
		c.sendPacket(protocol.PacketCreateGame, CreateGameReply{Code: LobbyAlreadyInGame})
		return nil
	}

	sess, err := c.hub.CreateGame(c, p.Name, p.VsAI)
	if err != nil {
		c.log.Error("create game failed", "error", err)
		c.sendPacket(protocol.PacketCreateGame, CreateGameReply{Code: LobbyNotJoinable})
		return nil
	}
	c.sess = sess
	c.seat = 1
	c.state = StateInGame
	c.sendPacket(protocol.PacketCreateGame, CreateGameReply{Code: LobbyOK, ID: sess.ID})
	return nil
}

func (c *Conn) handleJoinGame(body []byte) error {
	var p JoinGamePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: %v", errProtocol, err)
	}
	if c.sess != nil {
		c.sendPacket(protocol.PacketJoinGame, JoinReply{Code: LobbyAlreadyInGame})
		return nil
	}

	sess, code := c.hub.JoinGame(p.ID, c)
	if code != LobbyOK {
		c.sendPacket(protocol.PacketJoinGame, JoinReply{Code: code, ID: p.ID})
		return nil
	}
	c.sess = sess
	c.seat = 2
	c.state = StateInGame
	c.sendPacket(protocol.PacketJoinGame, JoinReply{
		Code: LobbyOK, ID: sess.ID, Seat: 2, Opponent: sess.SeatName(1),
	})
	return nil
}

func (c *Conn) handleGameInit(body []byte) error {
	if c.sess == nil {
		return fmt.Errorf("%w: game_init outside a game", errProtocol)
	}
	var p GameInitPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: %v", errProtocol, err)
	}

	reply := CommandReply{Code: int(game.RejectNone)}
	if err := c.sess.Deploy(c.seat, p.Order); err != nil {
		reply = CommandReply{Code: int(game.RejectBadCommand), Reason: err.Error()}
	}
	c.sendPacket(protocol.PacketGameInit, reply)
	return nil
}

func (c *Conn) handleGameCommand(body []byte) error {
	if c.sess == nil {
		return fmt.Errorf("%w: game_command outside a game", errProtocol)
	}
	var p CommandPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return fmt.Errorf("%w: %v", errProtocol, err)
	}

	code := c.sess.Submit(c.seat, p.Move)
	c.sendPacket(protocol.PacketGameCommand, CommandReply{
		Code: int(code), Reason: code.String(),
	})
	return nil
}

func (c *Conn) handleExitGame() error {
	if c.sess == nil {
		c.sendPacket(protocol.PacketExitGame, CommandReply{Code: int(game.RejectBadCommand)})
		return nil
	}
	c.hub.Leave(c, game.ReasonForfeit)
	c.state = StateInLobby
	c.sendPacket(protocol.PacketExitGame, CommandReply{Code: int(game.RejectNone)})
	return nil
}

func (c *Conn) handleRematch() error {
	if c.sess == nil {
		return fmt.Errorf("%w: rematch outside a game", errProtocol)
	}
	accepted, err := c.sess.Rematch(c.seat)
	if err != nil {
		c.sendPacket(protocol.PacketRematch, RematchReply{})
		return nil
	}
	c.sendPacket(protocol.PacketRematch, RematchReply{Accepted: accepted})
	return nil
}

// pushSync is the SyncFunc bound to this connection's seat.
func (c *Conn) pushSync(st game.SyncState) {
	c.sendPacket(protocol.PacketGameSync, st)
}

func (c *Conn) sendPacket(t protocol.PacketType, payload any) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			c.log.Error("marshal failed", "type", t.String(), "error", err)
			return
		}
	}
	frame, err := protocol.Frame(t, body, c.env)
	if err != nil {
		c.log.Error("frame failed", "type", t.String(), "error", err)
		return
	}
	if err := c.w.WriteFrame(frame); err != nil {
		return
	}
	PacketsTotal.WithLabelValues(t.String(), "out").Inc()
}
