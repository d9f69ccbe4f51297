package sqlast

import (
	"strings"

	"smf/internal/sqlast/token"
)

func (p *Parser) parseUnion() (*UnionStmt, error) {
	var with []CTE
	if p.at(token.WITH) {
		var err error
		with, err = p.parseWith()
		if err != nil {
			return nil, err
		}
	}
	first, err := p.parseSelect(with)
	if err != nil {
		return nil, err
	}
	u := &UnionStmt{Branches: []*SelectStmt{first}}
	for p.at(token.UNION) || p.at(token.EXCEPT) || p.at(token.INTERSECT) {
		op := p.advance().Literal
		if p.at(token.ALL) {
			p.advance()
			op = op + " ALL"
		}
		branch, err := p.parseSelect(nil)
		if err != nil {
			return nil, err
		}
		u.Ops = append(u.Ops, strings.ToUpper(op))
		u.Branches = append(u.Branches, branch)
	}
	return u, nil
}

func (p *Parser) parseWith() ([]CTE, error) {
	p.advance() // WITH
	var ctes []CTE
	for {
		name, err := p.qualifiedName()
		if err != nil {
			return nil, err
		}
		cte := CTE{Name: name}
		if p.eat(token.LPAREN) {
			for !p.at(token.RPAREN) && !p.at(token.EOF) {
				col, err := p.qualifiedName()
				if err != nil {
					return nil, err
				}
				cte.Columns = append(cte.Columns, col)
				if !p.eat(token.COMMA) {
					break
				}
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.AS); err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		query, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		cte.Query = query
		ctes = append(ctes, cte)
		if !p.eat(token.COMMA) {
			break
		}
	}
	return ctes, nil
}

func (p *Parser) parseSelect(with []CTE) (*SelectStmt, error) {
	if _, err := p.expect(token.SELECT); err != nil {
		return nil, err
	}
	sel := &SelectStmt{With: with}
	if p.at(token.DISTINCT) {
		p.advance()
		sel.Distinct = true
	} else if p.at(token.ALL) {
		p.advance()
	}
	if p.at(token.TOP) {
		p.advance()
		paren := p.eat(token.LPAREN)
		sel.Top = p.advance().Literal
		if paren {
			p.eat(token.RPAREN)
		}
		if p.atKeyword("PERCENT") {
			p.advance()
		}
	}

	for {
		proj, err := p.parseProjection()
		if err != nil {
			return nil, err
		}
		sel.Projections = append(sel.Projections, proj)
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
		sel.Into = name
	}

	if p.at(token.FROM) {
		p.advance()
		from, err := p.parseFromChain()
		if err != nil {
			return nil, err
		}
		sel.From = from
	}

	// WHERE / GROUP BY / HAVING / ORDER BY are all skipped bracket-aware;
	// sel.GroupBy and sel.OrderBy are left empty.
	if p.at(token.WHERE) {
		p.advance()
		p.skipBalanced(token.GROUP, token.HAVING, token.ORDER, token.UNION, token.EXCEPT, token.INTERSECT)
	}
	if p.at(token.GROUP) {
		p.advance()
		p.eat(token.BY)
		p.skipBalanced(token.HAVING, token.ORDER, token.UNION, token.EXCEPT, token.INTERSECT)
	}
	if p.at(token.HAVING) {
		p.advance()
		p.skipBalanced(token.ORDER, token.UNION, token.EXCEPT, token.INTERSECT)
	}
	if p.at(token.ORDER) {
		p.advance()
		p.eat(token.BY)
		p.skipBalanced(token.UNION, token.EXCEPT, token.INTERSECT)
	}
	return sel, nil
}

func (p *Parser) parseProjection() (Projection, error) {
	if p.at(token.ASTERISK) {
		p.advance()
		return Projection{Expr: Star{}}, nil
	}
	// qualified star: ident '.' '*'
	if p.at(token.IDENT) && p.peekN(1).Type == token.DOT && p.peekN(2).Type == token.ASTERISK {
		table := p.advance().Literal
		p.advance() // .
		p.advance() // *
		return Projection{Expr: Star{Table: table}}, nil
	}
	expr, err := p.parseExpr()
	if err != nil {
		return Projection{}, err
	}
	proj := Projection{Expr: expr}
	if p.at(token.AS) {
		p.advance()
		proj.Alias = p.advance().Literal
	} else if p.at(token.IDENT) && !p.startsClause() {
		proj.Alias = p.advance().Literal
	}
	return proj, nil
}

// startsClause reports whether the current token begins a new projection
// boundary keyword (used to avoid consuming "FROM" as a bare alias, etc.)
func (p *Parser) startsClause() bool {
	switch p.curType() {
	case token.FROM, token.COMMA, token.INTO, token.WHERE, token.GROUP,
		token.HAVING, token.ORDER, token.UNION, token.EXCEPT, token.INTERSECT,
		token.EOF, token.SEMICOLON:
		return true
	}
	return false
}

func (p *Parser) parseFromChain() (*TableRef, error) {
	head, err := p.parseTableRefPrimary()
	if err != nil {
		return nil, err
	}
	cur := head
	for {
		joinKind := ""
		switch {
		case p.at(token.INNER):
			p.advance()
			joinKind = "INNER"
		case p.at(token.LEFT):
			p.advance()
			p.eat(token.OUTER)
			joinKind = "LEFT"
		case p.at(token.RIGHT):
			p.advance()
			p.eat(token.OUTER)
			joinKind = "RIGHT"
		case p.at(token.FULL):
			p.advance()
			p.eat(token.OUTER)
			joinKind = "FULL"
		case p.at(token.CROSS):
			p.advance()
			joinKind = "CROSS"
		case p.at(token.JOIN):
			joinKind = "INNER"
		case p.at(token.COMMA):
			p.advance()
			joinKind = "CROSS"
		default:
			return head, nil
		}
		if p.at(token.JOIN) {
			p.advance()
		}
		next, err := p.parseTableRefPrimary()
		if err != nil {
			return nil, err
		}
		next.Join = joinKind
		if p.at(token.ON) {
			p.advance()
			p.skipBalanced(token.INNER, token.LEFT, token.RIGHT, token.FULL, token.CROSS, token.JOIN,
				token.WHERE, token.GROUP, token.HAVING, token.ORDER, token.INTO,
				token.UNION, token.EXCEPT, token.INTERSECT, token.COMMA)
		}
		cur.Next = next
		cur = next
	}
}

func (p *Parser) parseTableRefPrimary() (*TableRef, error) {
	if p.at(token.LPAREN) {
		p.advance()
		u, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		ref := &TableRef{SubUnion: u}
		if u.IsSingle() {
			ref.Sub = u.Branches[0]
		}
		ref.Alias = p.maybeAlias()
		return ref, nil
	}
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	ref := &TableRef{Name: name}
	ref.Alias = p.maybeAlias()
	return ref, nil
}

func (p *Parser) maybeAlias() string {
	if p.at(token.AS) {
		p.advance()
		return p.advance().Literal
	}
	if p.at(token.IDENT) {
		return p.advance().Literal
	}
	return ""
}
