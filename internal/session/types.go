// Package session keeps budget chess games in redis and broadcasts every
// accepted snapshot over pub/sub. Writes go through optimistic WATCH
// transactions keyed on the game blob, so two clients mutating the same
// session race safely: one wins, the other gets ErrConflict and replays
// against the fresh snapshot.
package session

var (
	ErrGameNotFound   = errf("game not found or expired")
	ErrCodeNotFound   = errf("unknown join code")
	ErrGameFull       = errf("game already has two players")
	ErrNotParticipant = errf("user is not seated in this game")
	ErrLayoutNotFound = errf("no layout or preset with that name")
	ErrConflict       = errf("concurrent update, retry against the new snapshot")
	ErrTooManyOpen    = errf("too many open games")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

func errf(s string) error { return staticErr(s) }
