package sqlast

import (
	"strings"

	"smf/internal/sqlast/token"
)

// parseExpr parses the additive/multiplicative expression grammar the
// lineage engine needs: arithmetic, casts, case expressions, function
// calls (including window functions), column references, and scalar
// subqueries. Boolean connectives (AND/OR/comparisons/IN/IS) are not part
// of this grammar: WHERE/ON/HAVING are skipped, and parseCase scans a WHEN
// condition's comparison tail for further operands on its own.
func (p *Parser) parseExpr() (Expr, error) {
	return p.parseAdditive()
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.advance().Literal
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.ASTERISK) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := p.advance().Literal
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.at(token.MINUS) || p.at(token.PLUS) {
		op := p.advance().Literal
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch {
	case p.at(token.STRING):
		return Literal{Value: p.advance().Literal, Kind: "string"}, nil
	case p.at(token.NSTRING):
		return Literal{Value: p.advance().Literal, Kind: "string"}, nil
	case p.at(token.NUMBER):
		return Literal{Value: p.advance().Literal, Kind: "number"}, nil
	case p.at(token.NULL):
		p.advance()
		return Literal{Value: "NULL", Kind: "null"}, nil
	case p.at(token.VARIABLE):
		return VariableRef{Name: p.advance().Literal}, nil
	case p.at(token.CASE):
		return p.parseCase()
	case p.at(token.IIF):
		return p.parseIIF()
	case p.at(token.CAST), p.at(token.TRY_CAST):
		return p.parseCast()
	case p.at(token.CONVERT), p.at(token.TRY_CONVERT):
		return p.parseConvert()
	case p.at(token.COALESCE):
		return p.parseSimpleFunc("COALESCE")
	case p.at(token.ISNULL):
		return p.parseSimpleFunc("COALESCE") // preprocessor already rewrites this; kept for direct AST calls too
	case p.at(token.LPAREN):
		p.advance()
		if p.at(token.SELECT) || p.at(token.WITH) {
			u, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			var sel *SelectStmt
			if u.IsSingle() {
				sel = u.Branches[0]
			}
			return &Subquery{Select: sel}, nil
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case p.at(token.IDENT):
		return p.parseIdentOrCall()
	default:
		return nil, &ErrParse{Msg: "unexpected token in expression: " + p.cur().Literal, Pos: p.cur().Pos}
	}
}

func (p *Parser) parseIdentOrCall() (Expr, error) {
	first := p.advance().Literal
	if p.at(token.DOT) {
		p.advance()
		if p.at(token.ASTERISK) {
			p.advance()
			return Star{Table: first}, nil
		}
		second := p.advance().Literal
		return ColumnRef{Table: first, Column: second}, nil
	}
	if p.at(token.LPAREN) {
		return p.parseCallTail(first)
	}
	return ColumnRef{Column: first}, nil
}

func (p *Parser) parseCallTail(name string) (Expr, error) {
	p.advance() // (
	fc := &FuncCall{Name: name, IsHash: strings.EqualFold(name, "HASHBYTES")}
	if p.at(token.DISTINCT) {
		p.advance()
		fc.Distinct = true
	}
	if !p.at(token.RPAREN) {
		for {
			if p.at(token.ASTERISK) {
				p.advance()
				fc.Args = append(fc.Args, Star{})
			} else {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				fc.Args = append(fc.Args, arg)
			}
			if !p.eat(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if p.at(token.OVER) {
		return p.parseWindowTail(fc)
	}
	return fc, nil
}

func (p *Parser) parseWindowTail(fc *FuncCall) (Expr, error) {
	p.advance() // OVER
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	w := &WindowExpr{Func: fc}
	if p.at(token.PARTITION) {
		p.advance()
		p.eat(token.BY)
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			w.PartitionBy = append(w.PartitionBy, e)
			if !p.eat(token.COMMA) {
				break
			}
		}
	}
	if p.at(token.ORDER) {
		p.advance()
		p.eat(token.BY)
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			w.OrderBy = append(w.OrderBy, e)
			if p.at(token.ASC) || p.at(token.DESC) {
				p.advance()
			}
			if !p.eat(token.COMMA) {
				break
			}
		}
	}
	// frame clause (ROWS/RANGE BETWEEN ...) is irrelevant to lineage; skip it.
	p.skipBalanced(token.RPAREN)
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return w, nil
}

func (p *Parser) parseSimpleFunc(name string) (Expr, error) {
	p.advance() // keyword token
	return p.parseCallTail(name)
}

func (p *Parser) parseCase() (Expr, error) {
	p.advance() // CASE
	ce := &CaseExpr{}
	if !p.at(token.WHEN) {
		operand, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Operand = operand
	}
	for p.at(token.WHEN) {
		p.advance()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		// comparison/boolean tail (=, IN (...), IS NULL, AND ...): operators
		// and literals are skipped, each further identifier operand is parsed
		// and chained so its column references stay visible to lineage.
		op := ""
		for !p.at(token.THEN) && !p.at(token.EOF) {
			if !p.at(token.IDENT) {
				op = p.advance().Literal
				continue
			}
			rhs, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			cond = &BinaryExpr{Op: strings.ToUpper(op), Left: cond, Right: rhs}
		}
		if _, err := p.expect(token.THEN); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, CaseWhen{Cond: cond, Value: val})
	}
	if p.at(token.ELSE) {
		p.advance()
		elseVal, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = elseVal
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return ce, nil
}

func (p *Parser) parseIIF() (Expr, error) {
	p.advance() // IIF
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COMMA); err != nil {
		return nil, err
	}
	thenVal, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COMMA); err != nil {
		return nil, err
	}
	elseVal, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &CaseExpr{Whens: []CaseWhen{{Cond: cond, Value: thenVal}}, Else: elseVal}, nil
}

func (p *Parser) parseCast() (Expr, error) {
	p.advance() // CAST/TRY_CAST
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.AS); err != nil {
		return nil, err
	}
	targetType, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &CastExpr{X: x, TargetType: targetType}, nil
}

// parseConvert covers CONVERT(type, expr [, style]); it normalizes directly
// to a CastExpr so the lineage engine sees one shape for both spellings,
// the "CONVERT -> CAST" rewrite the spec calls for (§4.2).
func (p *Parser) parseConvert() (Expr, error) {
	p.advance() // CONVERT/TRY_CONVERT
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	targetType, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COMMA); err != nil {
		return nil, err
	}
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.eat(token.COMMA) {
		// style argument, irrelevant to lineage
		if _, err := p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &CastExpr{X: x, TargetType: targetType, FromConvert: true}, nil
}

// parseTypeName reads a (possibly parameterized) type name: IDENT[(n[,n])].
func (p *Parser) parseTypeName() (string, error) {
	name := p.advance().Literal
	if p.at(token.LPAREN) {
		p.advance()
		var parts []string
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			parts = append(parts, p.advance().Literal)
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return "", err
		}
		name = name + "(" + strings.Join(parts, "") + ")"
	}
	return name, nil
}
