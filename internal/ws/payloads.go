package ws

import "rainet_server/internal/game"

// Packet bodies. The codec moves bytes; these give them shape.

// server → client, always in the clear, first packet on the wire.
type ServerInfoPayload struct {
	RequiresLogin bool `json:"requires_login"`
}

// client → server: PKIX DER of the client's RSA key.
type PublicKeyPayload struct {
	Key []byte `json:"key"`
}

// server → client: the session key, RSA-OAEP sealed.
type SessionKeyPayload struct {
	SealedKey []byte `json:"sealed_key"`
}

type LoginPayload struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	// Token is a rejoin token from an earlier login; when set it
	// replaces the credentials.
	Token string `json:"token,omitempty"`
}

// Login reply codes.
const (
	AuthOK = iota
	AuthInvalidUser
	AuthInvalidPassword
	AuthStoreError
	AuthBadName
	AuthBadToken
)

type LoginReply struct {
	Code               int    `json:"code"`
	MustChangePassword bool   `json:"must_change_password,omitempty"`
	Token              string `json:"token,omitempty"`
	Rating             int    `json:"rating,omitempty"`
}

type GameListEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Host string `json:"host"`
}

type GameListPayload struct {
	Games []GameListEntry `json:"games"`
}

type CreateGamePayload struct {
	Name string `json:"name,omitempty"`
	VsAI bool   `json:"vs_ai,omitempty"`
}

type CreateGameReply struct {
	Code int    `json:"code"`
	ID   string `json:"id,omitempty"`
}

// Lobby reply codes.
const (
	LobbyOK = iota
	LobbyNotFound
	LobbyFull
	LobbyNotJoinable
	LobbyAlreadyInGame
)

type JoinGamePayload struct {
	ID string `json:"id"`
}

type JoinReply struct {
	Code     int    `json:"code"`
	ID       string `json:"id,omitempty"`
	Seat     int    `json:"seat,omitempty"`
	Opponent string `json:"opponent,omitempty"`
}

// GameInitPayload carries the deployment permutation: deployment field
// i receives the card from stack slot order[i]. Empty order asks the
// server to shuffle.
type GameInitPayload struct {
	Order []int `json:"order,omitempty"`
}

type CommandPayload struct {
	Move game.Move `json:"move"`
}

type CommandReply struct {
	Code   int    `json:"code"`
	Reason string `json:"reason,omitempty"`
}

type RematchReply struct {
	// Accepted flips to true on the packet that completes the
	// agreement; the reset board follows as a GameSync.
	Accepted bool `json:"accepted"`
}
