package command

import (
	"bytes"

	"github.com/leengari/ksdb/internal/rowcodec"
	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/storeerr"
	"github.com/leengari/ksdb/internal/tableengine"
)

func (sess *Session) execSelect(c *cursor) []byte {
	var cols []string
	if tok, ok := c.peek(); ok && tok == "*" {
		c.next()
	} else {
		for {
			name, err := c.expectIdent()
			if err != nil {
				return replyError(storeerr.KindBadRow)
			}
			cols = append(cols, name)
			if c.acceptKeywordPunct(",") {
				continue
			}
			break
		}
	}

	if err := c.expectKeyword("FROM"); err != nil {
		return replyError(storeerr.KindBadRow)
	}
	qualified, err := c.expectIdent()
	if err != nil {
		return replyError(storeerr.KindBadRow)
	}
	keyspaceName, table := splitQualifiedName(qualified, sess.CurrentKeyspace)

	engine, openErr := sess.Store.OpenTable(keyspaceName, table)
	if openErr != nil {
		return replyFromError(openErr)
	}
	sch := engine.Schema()
	pairs := selectPairs(sch, cols)

	var whereCol string
	var whereLit rowcodec.Literal
	hasWhere := false
	if c.acceptKeyword("WHERE") {
		hasWhere = true
		name, err := c.expectIdent()
		if err != nil {
			return replyError(storeerr.KindBadRow)
		}
		whereCol = name
		if err := c.expectPunct("="); err != nil {
			return replyError(storeerr.KindBadRow)
		}
		tok, ok := c.next()
		if !ok {
			return replyError(storeerr.KindBadRow)
		}
		whereLit = parseLiteral(tok)
	}

	desc := false
	if c.acceptKeyword("ORDER") {
		if err := c.expectKeyword("BY"); err != nil {
			return replyError(storeerr.KindBadRow)
		}
		if _, err := c.expectIdent(); err != nil { // the order-by column; pk is the only supported sort key
			return replyError(storeerr.KindBadRow)
		}
		if c.acceptKeyword("DESC") {
			desc = true
		} else {
			c.acceptKeyword("ASC")
		}
	}

	if hasWhere {
		if whereCol != sch.PrimaryKeyColumn().Name {
			return replyError(storeerr.KindWhereMustUsePrimaryKey)
		}
		return sess.selectByPK(engine, sch, pairs, whereLit)
	}
	return sess.selectScan(engine, sch, pairs, desc)
}

func (sess *Session) selectByPK(engine *tableengine.Engine, sch *schema.Schema, pairs []rowcodec.SelectPair, lit rowcodec.Literal) []byte {
	pkBytes, err := rowcodec.PartitionKeyBytes(sch.PrimaryKeyColumn().Type, lit)
	if err != nil {
		return replyFromError(err)
	}
	rowBytes, found, err := engine.GetRow(pkBytes)
	if err != nil {
		return replyFromError(err)
	}
	if !found {
		return replyOKFields(rawField("found", false))
	}
	rowJSON, err := rowcodec.RowToJSONMapped(sch, pkBytes, rowBytes, pairs)
	if err != nil {
		return replyFromError(err)
	}
	return replyOKFields(
		rawField("found", true),
		preEncodedField("row", rowJSON),
	)
}

func (sess *Session) selectScan(engine *tableengine.Engine, sch *schema.Schema, pairs []rowcodec.SelectPair, desc bool) []byte {
	rows, err := engine.ScanAllRowsByPK(desc)
	if err != nil {
		return replyFromError(err)
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		rowJSON, err := rowcodec.RowToJSONMapped(sch, row.PKBytes, row.RowBytes, pairs)
		if err != nil {
			return replyFromError(err)
		}
		buf.Write(rowJSON)
	}
	buf.WriteByte(']')

	return replyOKFields(preEncodedField("rows", buf.Bytes()))
}

func selectPairs(sch *schema.Schema, cols []string) []rowcodec.SelectPair {
	if cols == nil {
		pairs := make([]rowcodec.SelectPair, len(sch.Columns))
		for i, col := range sch.Columns {
			pairs[i] = rowcodec.SelectPair{Alias: col.Name, Column: col.Name}
		}
		return pairs
	}
	pairs := make([]rowcodec.SelectPair, len(cols))
	for i, name := range cols {
		pairs[i] = rowcodec.SelectPair{Alias: name, Column: name}
	}
	return pairs
}
