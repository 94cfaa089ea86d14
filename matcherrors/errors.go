package matcherrors

import "errors"

// Error classes. Every sentinel below matches exactly one of these with errors.Is,
// which is how the dispatcher decides whether an error closes the connection,
// refuses the handshake, or is reported back with the Error opcode.
var (
	ErrProtocol      = errors.New("protocol error")
	ErrAuth          = errors.New("authentication error")
	ErrGameplay      = errors.New("gameplay error")
	ErrConfiguration = errors.New("configuration error")
)

type classified struct {
	class error
	msg   string
}

func (e *classified) Error() string { return e.msg }

// Is lets errors.Is match the error against its class as well as itself.
func (e *classified) Is(target error) bool { return target == e.class }

func protocol(msg string) error      { return &classified{class: ErrProtocol, msg: msg} }
func auth(msg string) error          { return &classified{class: ErrAuth, msg: msg} }
func gameplay(msg string) error      { return &classified{class: ErrGameplay, msg: msg} }
func configuration(msg string) error { return &classified{class: ErrConfiguration, msg: msg} }

// Protocol errors are connection-fatal.
var (
	ErrShortPacket       = protocol("packet too short")
	ErrUnknownOpcode     = protocol("unknown opcode")
	ErrFieldTooLong      = protocol("field exceeds maximum length")
	ErrAlreadyHandshaken = protocol("handshake already completed")
)

// Auth errors refuse the handshake.
var (
	ErrUnknownCredential = auth("unknown credential")
	ErrCredentialInUse   = auth("credential already registered")
	ErrRegistryFull      = auth("no player ids left")
)

// Gameplay errors are reported to the acting player; state is left unchanged.
var (
	ErrCardNotHeld      = gameplay("You do not hold that card.")
	ErrCardNotPlayable  = gameplay("That card cannot be played directly.")
	ErrGameFull         = gameplay("That game is full.")
	ErrBanned           = gameplay("You are banned from that game.")
	ErrGameNotFound     = gameplay("Game not found.")
	ErrGameStarted      = gameplay("That game has already started.")
	ErrGameNotStarted   = gameplay("The game has not started yet.")
	ErrGameFinished     = gameplay("The game is over.")
	ErrNotInGame        = gameplay("You are not in a game.")
	ErrAlreadyInGame    = gameplay("You are already in a game.")
	ErrNotYourTurn      = gameplay("It is not your turn.")
	ErrNotOwner         = gameplay("Only the game owner can do that.")
	ErrAwaitingAction   = gameplay("Finish the pending action first.")
	ErrNothingPending   = gameplay("There is nothing to resolve.")
	ErrInvalidOrder     = gameplay("The new order must use exactly the revealed cards.")
	ErrInvalidCombo     = gameplay("That is not a valid combo.")
	ErrNothingToNope    = gameplay("There is nothing to nope.")
	ErrPlayerNotFound   = gameplay("Player not found.")
	ErrInvalidTarget    = gameplay("You cannot target that player.")
	ErrNotEnoughPlayers = gameplay("At least two players are needed to start.")
	ErrInvalidName      = gameplay("Invalid name or message length.")
)

// Configuration errors reject the operation that would need an undefined setting.
var (
	ErrTooFewPlayers        = configuration("a deck needs at least two players")
	ErrNoTier               = configuration("no deck tier is defined for that many players")
	ErrInvalidPlayerLimit   = configuration("player limit must be between 2 and 18")
	ErrGameIDSpaceExhausted = configuration("no game ids left")
)
