// ws_smoke is a minimal client for poking a running server: key
// exchange, login, a game against the built-in AI, one random move.
package main

import (
	"encoding/json"
	"flag"
	"time"

	"rainet_server/internal/game"
	"rainet_server/internal/logger"
	"rainet_server/internal/protocol"
	"rainet_server/internal/ws"

	"github.com/gorilla/websocket"
)

type smokeClient struct {
	conn *websocket.Conn
	env  *protocol.Envelope
}

func (c *smokeClient) send(t protocol.PacketType, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Fatal("marshal", "error", err)
	}
	frame, err := protocol.Frame(t, body, c.env)
	if err != nil {
		logger.Fatal("frame", "error", err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		logger.Fatal("write", "error", err)
	}
}

// recv skips keep-alive probes and returns the next real packet.
func (c *smokeClient) recv() (protocol.PacketType, []byte) {
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			logger.Fatal("read", "error", err)
		}
		t, body, err := protocol.Parse(frame, c.env)
		if err != nil {
			logger.Fatal("parse", "error", err)
		}
		if t == protocol.PacketKeepAlive {
			continue
		}
		return t, body
	}
}

func (c *smokeClient) expect(want protocol.PacketType) []byte {
	t, body := c.recv()
	if t != want {
		logger.Fatal("unexpected packet", "want", want.String(), "got", t.String())
	}
	return body
}

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "server ws endpoint")
	name := flag.String("name", "smoke", "login name")
	password := flag.String("password", "", "password (ignored in open mode)")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial failed", "url", *url, "error", err)
	}
	defer conn.Close()
	c := &smokeClient{conn: conn}

	var info ws.ServerInfoPayload
	mustUnmarshal(c.expect(protocol.PacketServerInfo), &info)
	logger.Info("server info", "requires_login", info.RequiresLogin)

	// Key exchange.
	priv, err := protocol.NewClientKey()
	if err != nil {
		logger.Fatal("keygen", "error", err)
	}
	pubDER, err := protocol.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		logger.Fatal("marshal key", "error", err)
	}
	c.send(protocol.PacketPublicKey, ws.PublicKeyPayload{Key: pubDER})

	var sk ws.SessionKeyPayload
	mustUnmarshal(c.expect(protocol.PacketPublicKey), &sk)
	key, err := protocol.OpenSessionKey(priv, sk.SealedKey)
	if err != nil {
		logger.Fatal("open session key", "error", err)
	}
	if c.env, err = protocol.NewEnvelope(key); err != nil {
		logger.Fatal("envelope", "error", err)
	}
	logger.Info("session key established")

	// Login.
	c.send(protocol.PacketClientLogin, ws.LoginPayload{Name: *name, Password: *password})
	var login ws.LoginReply
	mustUnmarshal(c.expect(protocol.PacketClientLogin), &login)
	if login.Code != ws.AuthOK {
		logger.Fatal("login rejected", "code", login.Code)
	}
	logger.Info("logged in", "rating", login.Rating)

	// Game against the AI.
	c.send(protocol.PacketCreateGame, ws.CreateGamePayload{VsAI: true})
	var created ws.CreateGameReply
	mustUnmarshal(c.expect(protocol.PacketCreateGame), &created)
	if created.Code != ws.LobbyOK {
		logger.Fatal("create rejected", "code", created.Code)
	}
	logger.Info("game created", "id", created.ID)

	c.send(protocol.PacketGameInit, ws.GameInitPayload{}) // server shuffles

	deadline := time.After(15 * time.Second)
	for {
		select {
		case <-deadline:
			logger.Fatal("no sync with our turn")
		default:
		}

		t, body := c.recv()
		if t != protocol.PacketGameSync {
			continue
		}
		var st game.SyncState
		mustUnmarshal(body, &st)
		logger.Info("sync", "phase", st.Phase, "turn", st.Turn, "cells", len(st.Cells))

		if st.Phase == game.InProgress.String() && st.Turn == st.You {
			mv := firstStep(st)
			c.send(protocol.PacketGameCommand, ws.CommandPayload{Move: mv})
			var reply ws.CommandReply
			mustUnmarshal(c.expect(protocol.PacketGameCommand), &reply)
			logger.Info("command answered", "code", reply.Code, "reason", reply.Reason)
			c.send(protocol.PacketExitGame, nil)
			return
		}
	}
}

// firstStep proposes a forward step for the first own card found.
func firstStep(st game.SyncState) game.Move {
	dy := 1
	if st.You == 2 {
		dy = -1
	}
	for _, cell := range st.Cells {
		if cell.Card.Owner == st.You && cell.Card.Kind == "online" && cell.Pos.Y < game.MainRows {
			return game.Move{
				Kind: game.MoveStep,
				From: cell.Pos,
				To:   game.Position{X: cell.Pos.X, Y: cell.Pos.Y + dy},
			}
		}
	}
	return game.Move{}
}

func mustUnmarshal(body []byte, v any) {
	if err := json.Unmarshal(body, v); err != nil {
		logger.Fatal("unmarshal", "error", err)
	}
}
