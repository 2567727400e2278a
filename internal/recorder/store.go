package recorder

import "context"

// SessionStore is the durable persistence boundary. UpsertSession is keyed by
// Session.ID and must be idempotent: applying the same session state twice
// produces the same stored result. Implementations serialise concurrent
// upserts to the same key themselves.
type SessionStore interface {
	UpsertSession(ctx context.Context, session *Session) error
	ListRecentSessions(ctx context.Context, limit int) ([]*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}
