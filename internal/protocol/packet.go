// Package protocol carries the wire format: one byte of packet type
// followed by a JSON body, one websocket binary message per packet.
// After the key exchange every body except ServerInfo and KeepAlive is
// sealed by the session envelope. The codec knows nothing about game
// state; payload structs live with the session layer.
package protocol

import "errors"

type PacketType byte

// Values are fixed for wire compatibility. Everything above ClientLogin
// requires a logged-in session.
const (
	PacketPublicKey   PacketType = 0x01
	PacketClientLogin PacketType = 0x02
	PacketListGames   PacketType = 0x03
	PacketCreateGame  PacketType = 0x04
	PacketJoinGame    PacketType = 0x05
	PacketGameInit    PacketType = 0x06
	PacketGameSync    PacketType = 0x07
	PacketGameCommand PacketType = 0x08
	PacketExitGame    PacketType = 0x09
	PacketRematch     PacketType = 0x0A

	PacketServerInfo PacketType = 0xFE
	PacketKeepAlive  PacketType = 0xFF
)

// LoginBoundary: tags above it are rejected before login.
const LoginBoundary = PacketClientLogin

func (t PacketType) String() string {
	switch t {
	case PacketPublicKey:
		return "public_key"
	case PacketClientLogin:
		return "client_login"
	case PacketListGames:
		return "list_games"
	case PacketCreateGame:
		return "create_game"
	case PacketJoinGame:
		return "join_game"
	case PacketGameInit:
		return "game_init"
	case PacketGameSync:
		return "game_sync"
	case PacketGameCommand:
		return "game_command"
	case PacketExitGame:
		return "exit_game"
	case PacketRematch:
		return "rematch"
	case PacketServerInfo:
		return "server_info"
	case PacketKeepAlive:
		return "keep_alive"
	default:
		return "unknown"
	}
}

// RequiresLogin reports whether the tag is only valid after login.
func (t PacketType) RequiresLogin() bool {
	return t > LoginBoundary && t != PacketServerInfo && t != PacketKeepAlive
}

// Sealed reports whether the packet body travels inside the envelope
// once a session key exists. ServerInfo is always in the clear so a
// client can read it before any handshake; the key exchange itself
// cannot be sealed; keep-alive has no body worth protecting.
func (t PacketType) Sealed() bool {
	switch t {
	case PacketPublicKey, PacketServerInfo, PacketKeepAlive:
		return false
	default:
		return true
	}
}

var ErrEmptyFrame = errors.New("empty frame")

// Frame prefixes the body with its type tag, sealing it when the
// envelope applies. env may be nil before the key exchange.
func Frame(t PacketType, body []byte, env *Envelope) ([]byte, error) {
	if env != nil && t.Sealed() {
		var err error
		body, err = env.Seal(body)
		if err != nil {
			return nil, err
		}
	}
	out := make([]byte, 0, 1+len(body))
	out = append(out, byte(t))
	return append(out, body...), nil
}

// Parse splits a frame and opens the body when the envelope applies.
func Parse(frame []byte, env *Envelope) (PacketType, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, ErrEmptyFrame
	}
	t := PacketType(frame[0])
	body := frame[1:]
	if env != nil && t.Sealed() {
		var err error
		body, err = env.Open(body)
		if err != nil {
			return t, nil, err
		}
	}
	return t, body, nil
}
