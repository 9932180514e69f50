package command

import (
	"github.com/leengari/ksdb/internal/rowcodec"
	"github.com/leengari/ksdb/internal/storeerr"
)

func (sess *Session) execInsert(c *cursor) []byte {
	if err := c.expectKeyword("INTO"); err != nil {
		return replyError(storeerr.KindBadRow)
	}
	qualified, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	keyspaceName, table := splitQualifiedName(qualified, sess.CurrentKeyspace)

	cols, err := parseIdentList(c)
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	if err := c.expectKeyword("VALUES"); err != nil {
		return replyError(storeerr.KindBadRow)
	}

	engine, openErr := sess.Store.OpenTable(keyspaceName, table)
	if openErr != nil {
		return replyFromError(openErr)
	}
	sch := engine.Schema()

	pkCol := sch.PrimaryKeyColumn()
	pkPos := -1
	for i, name := range cols {
		if name == pkCol.Name {
			pkPos = i
			break
		}
	}
	if pkPos < 0 {
		return replyError(storeerr.KindMissingPK)
	}

	for {
		vals, err := parseLiteralTuple(c)
		if err != nil {
			return replyError(storeerr.KindBadRow)
		}
		if len(vals) != len(cols) {
			return replyError(storeerr.KindBadRow)
		}

		pkBytes, err := rowcodec.PartitionKeyBytes(pkCol.Type, vals[pkPos])
		if err != nil {
			return replyFromError(err)
		}
		rowBytes, err := rowcodec.RowBytes(sch, cols, vals)
		if err != nil {
			return replyFromError(err)
		}
		if err := engine.PutRow(pkBytes, rowBytes); err != nil {
			return replyFromError(err)
		}

		if !c.acceptKeywordPunct(",") {
			break
		}
	}

	return replyOK()
}

func (sess *Session) execUpdate(c *cursor) []byte {
	qualified, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	keyspaceName, table := splitQualifiedName(qualified, sess.CurrentKeyspace)
	if err := c.expectKeyword("SET"); err != nil {
		return replyError(storeerr.KindBadRow)
	}

	var setCols []string
	var setVals []rowcodec.Literal
	for {
		name, err := c.expectIdent()
		if err != nil {
			return replyError(storeerr.KindBadRow)
		}
		if err := c.expectPunct("="); err != nil {
			return replyError(storeerr.KindBadRow)
		}
		tok, ok := c.next()
		if !ok {
			return replyError(storeerr.KindBadRow)
		}
		setCols = append(setCols, name)
		setVals = append(setVals, parseLiteral(tok))

		if c.acceptKeyword("WHERE") {
			break
		}
		if err := c.expectPunct(","); err != nil {
			return replyError(storeerr.KindBadRow)
		}
	}

	engine, openErr := sess.Store.OpenTable(keyspaceName, table)
	if openErr != nil {
		return replyFromError(openErr)
	}
	sch := engine.Schema()

	whereCol, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	if whereCol != sch.PrimaryKeyColumn().Name {
		return replyError(storeerr.KindWhereMustUsePrimaryKey)
	}
	if err := c.expectPunct("="); err != nil {
		return replyError(storeerr.KindBadRow)
	}
	pkTok, ok := c.next()
	if !ok {
		return replyError(storeerr.KindBadRow)
	}

	pkBytes, err := rowcodec.PartitionKeyBytes(sch.PrimaryKeyColumn().Type, parseLiteral(pkTok))
	if err != nil {
		return replyFromError(err)
	}

	existing, found, err := engine.GetRow(pkBytes)
	if err != nil {
		return replyFromError(err)
	}
	if !found {
		return replyOK()
	}

	merged, err := rowcodec.MergeRowBytesForUpdate(sch, existing, setCols, setVals)
	if err != nil {
		return replyFromError(err)
	}
	if err := engine.PutRow(pkBytes, merged); err != nil {
		return replyFromError(err)
	}
	return replyOK()
}

func (sess *Session) execDelete(c *cursor) []byte {
	if err := c.expectKeyword("FROM"); err != nil {
		return replyError(storeerr.KindBadRow)
	}
	qualified, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	keyspaceName, table := splitQualifiedName(qualified, sess.CurrentKeyspace)
	if err := c.expectKeyword("WHERE"); err != nil {
		return replyError(storeerr.KindBadRow)
	}

	engine, openErr := sess.Store.OpenTable(keyspaceName, table)
	if openErr != nil {
		return replyFromError(openErr)
	}
	sch := engine.Schema()

	whereCol, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	if whereCol != sch.PrimaryKeyColumn().Name {
		return replyError(storeerr.KindWhereMustUsePrimaryKey)
	}
	if err := c.expectPunct("="); err != nil {
		return replyError(storeerr.KindBadRow)
	}
	pkTok, ok := c.next()
	if !ok {
		return replyError(storeerr.KindBadRow)
	}

	pkBytes, err := rowcodec.PartitionKeyBytes(sch.PrimaryKeyColumn().Type, parseLiteral(pkTok))
	if err != nil {
		return replyFromError(err)
	}
	if err := engine.DeleteRow(pkBytes); err != nil {
		return replyFromError(err)
	}
	return replyOK()
}

// parseIdentList parses "( a, b, c )" into ["a","b","c"].
func parseIdentList(c *cursor) ([]string, error) {
	if err := c.expectPunct("("); err != nil {
		return nil, err
	}
	var names []string
	for {
		name, err := c.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		tok, ok := c.next()
		if !ok {
			return nil, errExpected(")", "")
		}
		if tok == ")" {
			break
		}
		if tok != "," {
			return nil, errExpected(",", tok)
		}
	}
	return names, nil
}

// parseLiteralTuple parses "( lit, lit, ... )" into Literals.
func parseLiteralTuple(c *cursor) ([]rowcodec.Literal, error) {
	if err := c.expectPunct("("); err != nil {
		return nil, err
	}
	var lits []rowcodec.Literal
	for {
		tok, ok := c.next()
		if !ok {
			return nil, errExpected("literal", "")
		}
		lits = append(lits, parseLiteral(tok))
		next, ok := c.next()
		if !ok {
			return nil, errExpected(")", "")
		}
		if next == ")" {
			break
		}
		if next != "," {
			return nil, errExpected(",", next)
		}
	}
	return lits, nil
}

// acceptKeywordPunct consumes a bare punctuation token like "," if next.
func (c *cursor) acceptKeywordPunct(p string) bool {
	tok, ok := c.peek()
	if ok && tok == p {
		c.pos++
		return true
	}
	return false
}

func errExpected(want, got string) error {
	return &parseError{want: want, got: got}
}

type parseError struct{ want, got string }

func (e *parseError) Error() string { return "expected " + e.want + ", got " + e.got }
