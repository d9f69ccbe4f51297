package sqlast

import "smf/internal/sqlast/token"

func (p *Parser) parseInsert() (*InsertStmt, error) {
	p.advance() // INSERT
	p.eat(token.INTO)
	target, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &InsertStmt{Target: target}
	if p.eat(token.LPAREN) {
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			stmt.Columns = append(stmt.Columns, p.advance().Literal)
			if !p.eat(token.COMMA) {
				break
			}
		}
		p.eat(token.RPAREN)
	}
	switch {
	case p.at(token.EXEC), p.at(token.EXECUTE):
		p.advance()
		proc, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		stmt.Exec = proc
		p.skipToNextStatement()
	case p.at(token.SELECT), p.at(token.WITH):
		query, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		stmt.Select = query
	case p.at(token.VALUES):
		p.advance()
		p.skipBalanced()
		p.skipToNextStatement()
	default:
		p.skipToNextStatement()
	}
	return stmt, nil
}

func (p *Parser) parseMerge() (*MergeStmt, error) {
	p.advance() // MERGE
	p.eat(token.INTO)
	target, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &MergeStmt{Target: target}
	p.maybeAlias()
	if _, err := p.expect(token.USING); err != nil {
		return nil, err
	}
	src, err := p.parseTableRefPrimary()
	if err != nil {
		return nil, err
	}
	stmt.Source = src
	if _, err := p.expect(token.ON); err != nil {
		return nil, err
	}
	p.skipBalanced(token.WHEN)

	for p.at(token.WHEN) {
		p.advance()
		matched := true
		if p.at(token.NOT) {
			p.advance()
			matched = false
		}
		if _, err := p.expect(token.MATCHED); err != nil {
			return nil, err
		}
		// optional "AND <cond>" before THEN
		for !p.at(token.THEN) && !p.at(token.EOF) {
			p.advance()
		}
		if _, err := p.expect(token.THEN); err != nil {
			return nil, err
		}
		when := MergeWhen{Matched: matched}
		switch {
		case p.at(token.UPDATE):
			p.advance()
			if _, err := p.expect(token.SET); err != nil {
				return nil, err
			}
			for {
				col, err := p.qualifiedName()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(token.EQ); err != nil {
					return nil, err
				}
				val, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				when.SetColumns = append(when.SetColumns, lastSegment(col))
				when.SetExprs = append(when.SetExprs, val)
				if !p.eat(token.COMMA) {
					break
				}
			}
		case p.at(token.INSERT):
			p.advance()
			if p.eat(token.LPAREN) {
				for !p.at(token.RPAREN) && !p.at(token.EOF) {
					when.InsertCols = append(when.InsertCols, p.advance().Literal)
					if !p.eat(token.COMMA) {
						break
					}
				}
				p.eat(token.RPAREN)
			}
			if _, err := p.expect(token.VALUES); err != nil {
				return nil, err
			}
			if _, err := p.expect(token.LPAREN); err != nil {
				return nil, err
			}
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				v, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				when.InsertVals = append(when.InsertVals, v)
				if !p.eat(token.COMMA) {
					break
				}
			}
			p.eat(token.RPAREN)
		case p.at(token.DELETE):
			p.advance()
		}
		stmt.Whens = append(stmt.Whens, when)
	}
	p.skipToNextStatement()
	return stmt, nil
}

func (p *Parser) parseUpdate() (*UpdateStmt, error) {
	p.advance() // UPDATE
	target, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &UpdateStmt{Target: target}
	if _, err := p.expect(token.SET); err != nil {
		return nil, err
	}
	for {
		col, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.EQ); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.SetColumns = append(stmt.SetColumns, lastSegment(col))
		stmt.SetExprs = append(stmt.SetExprs, val)
		if !p.eat(token.COMMA) {
			break
		}
	}
	if p.at(token.OUTPUT) {
		out, err := p.parseOutputClause()
		if err != nil {
			return nil, err
		}
		stmt.Output = out
	}
	if p.at(token.FROM) {
		p.advance()
		from, err := p.parseFromChain()
		if err != nil {
			return nil, err
		}
		stmt.From = from
	}
	if p.at(token.WHERE) {
		p.advance()
		p.skipBalanced()
	}
	p.skipToNextStatement()
	return stmt, nil
}

func (p *Parser) parseDelete() (*DeleteStmt, error) {
	p.advance() // DELETE
	p.eat(token.FROM)
	target, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStmt{Target: target}
	if p.at(token.OUTPUT) {
		out, err := p.parseOutputClause()
		if err != nil {
			return nil, err
		}
		stmt.Output = out
	}
	if p.at(token.FROM) {
		p.advance()
		from, err := p.parseFromChain()
		if err != nil {
			return nil, err
		}
		stmt.From = from
	}
	if p.at(token.WHERE) {
		p.advance()
		p.skipBalanced()
	}
	p.skipToNextStatement()
	return stmt, nil
}

func (p *Parser) parseOutputClause() (*OutputClause, error) {
	p.advance() // OUTPUT
	out := &OutputClause{}
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		oc := OutputColumn{}
		if ref, ok := expr.(ColumnRef); ok {
			oc.Source = ref.Table
			oc.Column = ref.Column
		}
		if p.at(token.AS) {
			p.advance()
			oc.Alias = p.advance().Literal
		} else if p.at(token.IDENT) {
			oc.Alias = p.advance().Literal
		}
		out.Columns = append(out.Columns, oc)
		if !p.eat(token.COMMA) {
			break
		}
	}
	if p.at(token.INTO) {
		p.advance()
		name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		out.Into = name
		if p.eat(token.LPAREN) {
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				p.advance()
			}
			p.eat(token.RPAREN)
		}
	}
	return out, nil
}

func lastSegment(qualified string) string {
	idx := -1
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			idx = i
			break
		}
	}
	if idx == -1 {
		return qualified
	}
	return qualified[idx+1:]
}
