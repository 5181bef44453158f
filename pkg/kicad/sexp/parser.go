package sexp

import (
	"fmt"
	"io"
	"strings"
)

// Parser builds trees from a token stream
type Parser struct {
	lex *Lexer
	tok Token
}

// NewParser creates a parser reading from r
func NewParser(r io.Reader) *Parser {
	return &Parser{lex: NewLexer(r)}
}

// ParseAll reads every top-level expression until the end of input
func (p *Parser) ParseAll() ([]Node, error) {
	var out []Node
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == TokenEOF {
			return out, nil
		}
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
}

// Parse reads exactly one list expression from r
func Parse(r io.Reader) (*List, error) {
	nodes, err := NewParser(r).ParseAll()
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("expected one top-level expression, got %d", len(nodes))
	}
	list, ok := nodes[0].(*List)
	if !ok {
		return nil, fmt.Errorf("expected a list at top level, got %s", nodes[0])
	}
	return list, nil
}

// ParseString is Parse over a string
func ParseString(s string) (*List, error) {
	return Parse(strings.NewReader(s))
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *Parser) expr() (Node, error) {
	switch p.tok.Kind {
	case TokenOpen:
		l, err := p.list()
		if err != nil {
			return nil, err
		}
		return l, nil
	case TokenAtom, TokenString:
		return Atom(p.tok.Text), nil
	case TokenClose:
		return nil, fmt.Errorf("line %d: unexpected ')'", p.tok.Line)
	}
	return nil, fmt.Errorf("line %d: unexpected %s", p.tok.Line, p.tok.Kind)
}

func (p *Parser) list() (*List, error) {
	l := &List{Line: p.tok.Line}
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.tok.Kind {
		case TokenClose:
			return l, nil
		case TokenEOF:
			return nil, fmt.Errorf("line %d: unclosed list opened on line %d", p.tok.Line, l.Line)
		}
		n, err := p.expr()
		if err != nil {
			return nil, err
		}
		l.Items = append(l.Items, n)
	}
}
