package engine

import "fmt"

// Gameplay mistakes are rejections, not failures: the state is left
// untouched and one of these sentinels comes back so callers can report the
// reason. Only malformed snapshots are treated as real errors.
var (
	ErrWrongPhase      = errf("operation not allowed in this phase")
	ErrNotYourTurn     = errf("not your turn")
	ErrGameOver        = errf("game is over")
	ErrBadSquare       = errf("square out of bounds")
	ErrNoPiece         = errf("no piece on that square")
	ErrNotYourPiece    = errf("piece belongs to the opponent")
	ErrSquareOccupied  = errf("square already occupied")
	ErrOutOfZone       = errf("square outside the placement zone")
	ErrBudgetExceeded  = errf("not enough points left")
	ErrSecondKing      = errf("side already has a king")
	ErrKingRemoval     = errf("the king cannot be removed")
	ErrKingMissing     = errf("a king must be on the board")
	ErrIllegalMove     = errf("destination is not a legal move")
	ErrSetupFinished   = errf("setup already finished for this side")
	ErrUnknownKind     = errf("unknown piece kind")
	ErrLayoutTooBig    = errf("layout cost exceeds the budget")
	ErrInvalidSnapshot = errf("invalid snapshot")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

func errf(s string) error { return staticErr(s) }

func snapshotErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSnapshot, fmt.Sprintf(format, args...))
}
