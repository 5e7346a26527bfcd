package parser

import "fmt"

// Parse build the AST for a filter expression.
// Grammar, loosest binding first:
//
//	expr    := and ("or" and)*
//	and     := not ("and" not)*
//	not     := "not" not | cmp
//	cmp     := primary (op primary)?      op: == != < <= > >= in %
//	primary := ident | string | "true" | "false" | "(" expr ")"
func Parse(input string) (Expr, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tk := p.peek(); tk.kind != tokEOF {
		return nil, fmt.Errorf("filter: unexpected %q at offset %d", tk.text, tk.pos)
	}
	return e, nil
}

type exprParser struct {
	tokens []token
	idx    int
}

func (p *exprParser) peek() token {
	return p.tokens[p.idx]
}

func (p *exprParser) next() token {
	tk := p.tokens[p.idx]
	if tk.kind != tokEOF {
		p.idx++
	}
	return tk
}

func (p *exprParser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "or" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrExpr{L: left, R: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "and" {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &AndExpr{L: left, R: right}
	}
	return left, nil
}

func (p *exprParser) parseNot() (Expr, error) {
	if p.peek().kind == tokIdent && p.peek().text == "not" {
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{X: x}, nil
	}
	return p.parseCmp()
}

func (p *exprParser) parseCmp() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	tk := p.peek()
	op := ""
	switch {
	case tk.kind == tokOp:
		op = tk.text
	case tk.kind == tokIdent && tk.text == "in":
		op = "in"
	default:
		return left, nil
	}
	p.next()
	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return &CmpExpr{Op: op, L: left, R: right}, nil
}

func (p *exprParser) parsePrimary() (Expr, error) {
	tk := p.next()
	switch tk.kind {
	case tokString:
		return &StrLit{V: tk.text}, nil
	case tokIdent:
		switch tk.text {
		case "true":
			return &BoolLit{V: true}, nil
		case "false":
			return &BoolLit{V: false}, nil
		case "and", "or", "not", "in":
			return nil, fmt.Errorf("filter: unexpected keyword %q at offset %d", tk.text, tk.pos)
		}
		return &Ident{Name: tk.text}, nil
	case tokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, fmt.Errorf("filter: missing ) at offset %d", closing.pos)
		}
		return e, nil
	}
	return nil, fmt.Errorf("filter: unexpected end of expression at offset %d", tk.pos)
}
