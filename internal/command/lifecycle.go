package command

import (
	"github.com/leengari/ksdb/internal/storeerr"
)

func (sess *Session) execDropKeyspace(c *cursor) []byte {
	ifExists := c.acceptKeyword("IF") && c.acceptKeyword("EXISTS")
	name, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	if err := sess.Store.DropKeyspace(name, ifExists); err != nil {
		return replyFromError(err)
	}
	return replyOK()
}

func (sess *Session) execDropTable(c *cursor) []byte {
	ifExists := c.acceptKeyword("IF") && c.acceptKeyword("EXISTS")
	qualified, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	keyspaceName, table := splitQualifiedName(qualified, sess.CurrentKeyspace)
	if err := sess.Store.DropTable(keyspaceName, table, ifExists); err != nil {
		return replyFromError(err)
	}
	return replyOK()
}

func (sess *Session) execTruncate(c *cursor) []byte {
	if err := c.expectKeyword("TABLE"); err != nil {
		return replyError(storeerr.KindBadRow)
	}
	qualified, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	keyspaceName, table := splitQualifiedName(qualified, sess.CurrentKeyspace)
	if err := sess.Store.TruncateTable(keyspaceName, table); err != nil {
		return replyFromError(err)
	}
	return replyOK()
}

// execFlush handles "FLUSH k.t", a maintenance command spec.md §8's
// tombstone scenario exercises directly against the table engine.
func (sess *Session) execFlush(c *cursor) []byte {
	qualified, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	keyspaceName, table := splitQualifiedName(qualified, sess.CurrentKeyspace)
	engine, err := sess.Store.OpenTable(keyspaceName, table)
	if err != nil {
		return replyFromError(err)
	}
	if err := engine.Flush(); err != nil {
		return replyFromError(err)
	}
	return replyOK()
}

func (sess *Session) execUse(c *cursor) []byte {
	name, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	sess.CurrentKeyspace = name
	return replyOK()
}
