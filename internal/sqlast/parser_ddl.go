package sqlast

import (
	"strings"

	"smf/internal/sqlast/token"
)

// parseCreate dispatches CREATE/ALTER [OR ALTER] TABLE|VIEW|FUNCTION|PROC[EDURE].
func (p *Parser) parseCreate() (Stmt, error) {
	p.advance() // CREATE or ALTER
	if p.at(token.OR) {
		p.advance()
		if _, err := p.expect(token.ALTER); err != nil {
			return nil, err
		}
	}
	switch {
	case p.at(token.TABLE):
		return p.parseCreateTable()
	case p.at(token.VIEW):
		return p.parseCreateView()
	case p.at(token.FUNCTION):
		return p.parseCreateFunction()
	case p.at(token.PROCEDURE), p.at(token.PROC):
		return p.parseCreateProcedure()
	default:
		p.skipToNextStatement()
		return nil, nil
	}
}

func (p *Parser) parseCreateTable() (*CreateTableStmt, error) {
	p.advance() // TABLE
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &CreateTableStmt{Name: name}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	depth := 1
	for depth > 0 && !p.at(token.EOF) {
		if p.at(token.CONSTRAINT) || p.at(token.PRIMARY) || p.at(token.FOREIGN) || p.at(token.CHECK) {
			// table-level constraint: skip its definition, it carries no
			// column-level schema information beyond what's already on the
			// column (PRIMARY KEY inline is handled per-column below).
			p.skipConstraintClause()
			if p.eat(token.COMMA) {
				continue
			}
			continue
		}
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, col)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	for !p.at(token.RPAREN) && !p.at(token.EOF) {
		p.advance()
	}
	p.eat(token.RPAREN)
	_ = depth
	p.skipToNextStatement()
	return stmt, nil
}

func (p *Parser) skipConstraintClause() {
	for !p.at(token.EOF) {
		if p.at(token.COMMA) {
			return
		}
		if p.at(token.LPAREN) {
			p.skipBalanced()
			p.eat(token.RPAREN)
			continue
		}
		if p.at(token.RPAREN) {
			return
		}
		p.advance()
	}
}

// parseColumnDef parses "name type [NULL|NOT NULL] [PRIMARY KEY] ..." and
// consumes any trailing column options up to the next top-level comma or
// the table's closing paren. PRIMARY KEY implies NOT NULL unless an
// explicit NULL keyword overrides the default nullability.
func (p *Parser) parseColumnDef() (ColumnDef, error) {
	nameTok := p.advance()
	col := ColumnDef{Name: nameTok.Literal, Nullable: true}
	col.DataType = p.advance().Literal
	if p.at(token.LPAREN) {
		p.advance()
		var parts []string
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			parts = append(parts, p.advance().Literal)
		}
		p.eat(token.RPAREN)
		col.DataType = col.DataType + "(" + strings.Join(parts, "") + ")"
	}
	explicitNull := false
	for !p.at(token.COMMA) && !p.at(token.RPAREN) && !p.at(token.EOF) {
		switch {
		case p.at(token.NOT):
			p.advance()
			p.eat(token.NULL)
			col.Nullable = false
			explicitNull = true
		case p.at(token.NULL):
			p.advance()
			col.Nullable = true
			explicitNull = true
		case p.at(token.PRIMARY):
			p.advance()
			p.eat(token.KEY)
			col.PrimaryKey = true
			if !explicitNull {
				col.Nullable = false
			}
		case p.at(token.IDENTITY):
			p.advance()
			if p.at(token.LPAREN) {
				p.skipBalanced()
				p.eat(token.RPAREN)
			}
		case p.at(token.LPAREN):
			p.skipBalanced()
			p.eat(token.RPAREN)
		default:
			p.advance()
		}
	}
	return col, nil
}

func (p *Parser) parseCreateView() (*CreateViewStmt, error) {
	p.advance() // VIEW
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &CreateViewStmt{Name: name}
	if p.eat(token.LPAREN) {
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			stmt.Columns = append(stmt.Columns, p.advance().Literal)
			if !p.eat(token.COMMA) {
				break
			}
		}
		p.eat(token.RPAREN)
	}
	// skip view options (WITH SCHEMABINDING etc.) up to AS
	for !p.at(token.AS) && !p.at(token.EOF) && !p.at(token.SELECT) {
		p.advance()
	}
	p.eat(token.AS)
	query, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	stmt.Query = query
	return stmt, nil
}

func (p *Parser) parseCreateFunction() (*CreateFunctionStmt, error) {
	p.advance() // FUNCTION
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &CreateFunctionStmt{Name: name}
	if p.at(token.LPAREN) {
		p.skipBalanced()
		p.eat(token.RPAREN)
	}
	if _, err := p.expect(token.RETURNS); err != nil {
		return nil, err
	}
	if p.at(token.TABLE) {
		p.advance()
		for !p.at(token.AS) && !p.at(token.EOF) {
			p.advance()
		}
		p.eat(token.AS)
		p.eat(token.RETURN)
		wrapped := p.eat(token.LPAREN)
		query, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if wrapped {
			p.eat(token.RPAREN)
		}
		stmt.Kind = InlineTVF
		stmt.InlineQuery = query
		p.skipToNextStatement()
		return stmt, nil
	}
	if p.at(token.VARIABLE) {
		tableVar := p.advance().Literal
		if _, err := p.expect(token.TABLE); err != nil {
			return nil, err
		}
		stmt.Kind = MultiTVF
		stmt.TableVar = tableVar
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		for !p.at(token.RPAREN) && !p.at(token.EOF) {
			if p.at(token.CONSTRAINT) || p.at(token.PRIMARY) || p.at(token.FOREIGN) || p.at(token.CHECK) {
				p.skipConstraintClause()
				p.eat(token.COMMA)
				continue
			}
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			stmt.TableSchema = append(stmt.TableSchema, col)
			if !p.eat(token.COMMA) {
				break
			}
		}
		p.eat(token.RPAREN)
		for !p.at(token.AS) && !p.at(token.EOF) {
			p.advance()
		}
		p.eat(token.AS)
		p.eat(token.BEGIN)
		for !p.at(token.RETURN) && !p.at(token.EOF) {
			s, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			if ins, ok := s.(*InsertStmt); ok {
				stmt.Inserts = append(stmt.Inserts, ins)
			}
		}
		p.skipToNextStatement()
		return stmt, nil
	}
	// scalar UDF: skip the return type and the whole body.
	stmt.Kind = ScalarFunction
	for !p.at(token.EOF) {
		if p.at(token.CREATE) || p.at(token.ALTER) {
			break
		}
		p.advance()
	}
	return stmt, nil
}

func (p *Parser) parseCreateProcedure() (*CreateProcedureStmt, error) {
	p.advance() // PROCEDURE/PROC
	name, err := p.qualifiedName()
	if err != nil {
		return nil, err
	}
	stmt := &CreateProcedureStmt{Name: name}
	// parameter list: up to AS, possibly without parens ("@x int, @y int AS")
	for !p.at(token.AS) && !p.at(token.EOF) {
		p.advance()
	}
	p.eat(token.AS)
	p.eat(token.BEGIN)
	for !p.at(token.EOF) {
		if p.at(token.CREATE) || p.at(token.ALTER) {
			break
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if s != nil {
			stmt.Body = append(stmt.Body, s)
		}
	}
	return stmt, nil
}
