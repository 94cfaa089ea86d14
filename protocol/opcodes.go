// Package protocol implements the binary wire format spoken over the game
// socket. Every message starts with a one-byte opcode; integers are big-endian
// and variable-length fields carry a uint16 length prefix. Several messages may
// be coalesced into one transport frame.
package protocol

// Opcode identifies an upstream (client to server) message.
type Opcode byte

// Upstream opcodes.
const (
	OpNop                Opcode = 0x00
	OpSecret             Opcode = 0x01 // 8B secret | str name
	OpReconnect          Opcode = 0x02 // 8B secret | str name
	OpNewGame            Opcode = 0x03 // B settings | H player limit
	OpJoinGame           Opcode = 0x04 // H game id
	OpLeaveGame          Opcode = 0x05
	OpShuffleTurnOrder   Opcode = 0x06
	OpStartGame          Opcode = 0x07
	OpPlayCard           Opcode = 0x08 // H kind
	OpPlayCombo          Opcode = 0x09 // B n | n(H kind) | H target | H named kind
	OpPlayTargetedAttack Opcode = 0x0A // H target
	OpPlayNope           Opcode = 0x0B
	OpAlterTheFuture     Opcode = 0x0C // B n | n(H kind)
	OpReturnFavor        Opcode = 0x0D // H kind
	OpDrawCard           Opcode = 0x0E
	OpDie                Opcode = 0x0F
	OpDefuse             Opcode = 0x10 // H position
	OpEndTurn            Opcode = 0x11
	OpChat               Opcode = 0x12 // str message
	OpKick               Opcode = 0x13 // H player id
	OpBan                Opcode = 0x14 // H player id
	OpPlayFavor          Opcode = 0x15 // H target
)

// String returns a stable name for logs and metric labels.
func (o Opcode) String() string {
	switch o {
	case OpNop:
		return "nop"
	case OpSecret:
		return "secret"
	case OpReconnect:
		return "reconnect"
	case OpNewGame:
		return "new_game"
	case OpJoinGame:
		return "join_game"
	case OpLeaveGame:
		return "leave_game"
	case OpShuffleTurnOrder:
		return "shuffle_turn_order"
	case OpStartGame:
		return "start_game"
	case OpPlayCard:
		return "play_card"
	case OpPlayCombo:
		return "play_combo"
	case OpPlayTargetedAttack:
		return "play_targeted_attack"
	case OpPlayNope:
		return "play_nope"
	case OpAlterTheFuture:
		return "alter_the_future"
	case OpReturnFavor:
		return "return_favor"
	case OpDrawCard:
		return "draw_card"
	case OpDie:
		return "die"
	case OpDefuse:
		return "defuse"
	case OpEndTurn:
		return "end_turn"
	case OpChat:
		return "chat"
	case OpKick:
		return "kick"
	case OpBan:
		return "ban"
	case OpPlayFavor:
		return "play_favor"
	default:
		return "unknown"
	}
}

// Downstream (server to client) message codes.
const (
	MsgNop                   byte = 0x00
	MsgPubkey                byte = 0x01
	MsgAck                   byte = 0x02
	MsgListGames             byte = 0x03
	MsgJoinGame              byte = 0x04
	MsgPregameInfo           byte = 0x05
	MsgPregamePlayerInfo     byte = 0x06
	MsgOngoingGameInfo       byte = 0x07
	MsgOngoingGamePlayerInfo byte = 0x08
	MsgCardsInfo             byte = 0x09
	MsgChat                  byte = 0x0A
	MsgGameOver              byte = 0x0C
	MsgKick                  byte = 0x0D
	MsgCardAnimation         byte = 0x0E
	MsgSeeTheFuture          byte = 0x0F
	MsgMakeOwner             byte = 0x10
	MsgError                 byte = 0x11
	MsgGameStarted           byte = 0x12
	MsgTurn                  byte = 0x13
	MsgCardDrawn             byte = 0x14
	MsgPlayerEliminated      byte = 0x15
)

// Card animation classes carried in the first field of MsgCardAnimation.
const (
	AnimPlay uint16 = iota
	AnimCombo
	AnimDraw
	AnimDefuse
	AnimNope
	AnimSteal
	AnimTargetedAttack
	AnimFavor // subclass is the player asked for a card
)

// SecretSize is the length of the credential sent during the handshake.
const SecretSize = 8

// NoCard marks an absent card slot (for example a peek at a deck with fewer
// than three cards) and an absent implosion distance.
const NoCard uint16 = 0xFFFF

// Settings bits of the New Game / List Games settings byte.
const (
	SettingHasImploding byte = 1 << 0
	SettingImploding    byte = 1 << 1
)

// PackSettings folds the two expansion flags into the settings byte.
func PackSettings(imploding, hasImploding bool) byte {
	var b byte
	if imploding {
		b |= SettingImploding
	}
	if hasImploding {
		b |= SettingHasImploding
	}
	return b
}

// UnpackSettings is the inverse of PackSettings.
func UnpackSettings(b byte) (imploding, hasImploding bool) {
	return b&SettingImploding != 0, b&SettingHasImploding != 0
}
