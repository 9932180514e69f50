// Package command implements the minimal line-command dispatcher
// original_source's src/net/commands/*.cpp shows as the network
// collaborator's surface: CREATE/DROP KEYSPACE/TABLE, TRUNCATE TABLE, USE,
// INSERT, UPDATE, DELETE, SELECT, FLUSH and METRICS. spec.md §1 treats the SQL
// tokenizer/parser as an external collaborator; this package is the
// minimal stand-in needed to drive the engine end-to-end and reproduce
// spec.md §8's wire scenarios. It is not part of the core budget.
package command

import (
	"strings"

	"github.com/leengari/ksdb/internal/storeerr"
	"github.com/leengari/ksdb/internal/store"
)

// Session is one client connection's parsing state: the façade it talks
// to and the keyspace USE selected, if any.
type Session struct {
	Store           *store.Store
	CurrentKeyspace string
}

// NewSession returns a session with no keyspace selected.
func NewSession(s *store.Store) *Session {
	return &Session{Store: s}
}

// Execute parses and runs one command line, returning the compact JSON
// reply (without a trailing newline — the caller's transport adds one).
func (sess *Session) Execute(line string) []byte {
	line = strings.TrimSpace(line)
	if line == "" {
		return replyError(storeerr.KindBadRow)
	}
	tokens := tokenize(line)
	if len(tokens) == 0 {
		return replyError(storeerr.KindBadRow)
	}
	c := &cursor{tokens: tokens}

	head, _ := c.next()
	switch strings.ToUpper(head) {
	case "CREATE":
		return sess.dispatchCreate(c)
	case "DROP":
		return sess.dispatchDrop(c)
	case "TRUNCATE":
		return sess.execTruncate(c)
	case "USE":
		return sess.execUse(c)
	case "INSERT":
		return sess.execInsert(c)
	case "UPDATE":
		return sess.execUpdate(c)
	case "DELETE":
		return sess.execDelete(c)
	case "SELECT":
		return sess.execSelect(c)
	case "FLUSH":
		return sess.execFlush(c)
	case "METRICS":
		return sess.execMetrics(c)
	default:
		return replyError(storeerr.KindBadRow)
	}
}

func (sess *Session) dispatchCreate(c *cursor) []byte {
	kw, ok := c.next()
	if !ok {
		return replyError(storeerr.KindBadRow)
	}
	switch strings.ToUpper(kw) {
	case "KEYSPACE":
		return sess.execCreateKeyspace(c)
	case "TABLE":
		return sess.execCreateTable(c)
	default:
		return replyError(storeerr.KindBadRow)
	}
}

func (sess *Session) dispatchDrop(c *cursor) []byte {
	kw, ok := c.next()
	if !ok {
		return replyError(storeerr.KindBadRow)
	}
	switch strings.ToUpper(kw) {
	case "KEYSPACE":
		return sess.execDropKeyspace(c)
	case "TABLE":
		return sess.execDropTable(c)
	default:
		return replyError(storeerr.KindBadRow)
	}
}
