package command

import (
	"strings"

	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/storeerr"
)

func (sess *Session) execCreateKeyspace(c *cursor) []byte {
	name, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	if err := sess.Store.CreateKeyspace(name); err != nil {
		return replyFromError(err)
	}
	return replyOK()
}

// execCreateTable parses "TABLE [IF NOT EXISTS] <name> ( col type, col
// type, ..., PRIMARY KEY ( col ) )" and creates the table.
func (sess *Session) execCreateTable(c *cursor) []byte {
	ifNotExists := c.acceptKeyword("IF") && c.acceptKeyword("NOT") && c.acceptKeyword("EXISTS")
	qualified, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	keyspaceName, table := splitQualifiedName(qualified, sess.CurrentKeyspace)
	if keyspaceName == "" {
		return replyError(storeerr.KindKeyspaceNotFound)
	}

	if err := c.expectPunct("("); err != nil {
		return replyError(storeerr.KindBadRow)
	}

	var columns []schema.Column
	pkName := ""
	for {
		tok, ok := c.peek()
		if !ok {
			return replyError(storeerr.KindBadRow)
		}
		if strings.EqualFold(tok, "PRIMARY") {
			c.next()
			if err := c.expectKeyword("KEY"); err != nil {
				return replyError(storeerr.KindBadRow)
			}
			if err := c.expectPunct("("); err != nil {
				return replyError(storeerr.KindBadRow)
			}
			name, err := c.expectIdent()
			if err != nil {
				return replyError(storeerr.KindBadRow)
			}
			pkName = name
			if err := c.expectPunct(")"); err != nil {
				return replyError(storeerr.KindBadRow)
			}
		} else {
			name, err := c.expectIdent()
			if err != nil {
				return replyError(storeerr.KindBadRow)
			}
			typeTok, err := c.expectIdent()
			if err != nil {
				return replyError(storeerr.KindBadRow)
			}
			colType, ok := parseColumnType(typeTok)
			if !ok {
				return replyError(storeerr.KindBadRow)
			}
			columns = append(columns, schema.Column{Name: name, Type: colType})
		}

		next, ok := c.peek()
		if !ok {
			return replyError(storeerr.KindBadRow)
		}
		if next == ")" {
			c.next()
			break
		}
		if err := c.expectPunct(","); err != nil {
			return replyError(storeerr.KindBadRow)
		}
	}

	pkIndex := -1
	for i, col := range columns {
		if col.Name == pkName {
			pkIndex = i
			break
		}
	}
	if pkIndex < 0 {
		return replyError(storeerr.KindBadRow)
	}

	sch := &schema.Schema{Columns: columns, PrimaryKeyIndex: pkIndex}
	if err := sch.Validate(); err != nil {
		return replyError(storeerr.KindBadRow)
	}

	if _, err := sess.Store.CreateTable(keyspaceName, table, sch, ifNotExists); err != nil {
		return replyFromError(err)
	}
	return replyOK()
}
