package sexp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// TokenKind classifies a lexical token
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenOpen
	TokenClose
	TokenAtom
	TokenString
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenOpen:
		return "'('"
	case TokenClose:
		return "')'"
	case TokenAtom:
		return "atom"
	case TokenString:
		return "string"
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token is one lexical unit with the line it started on
type Token struct {
	Kind TokenKind
	Text string
	Line int
}

// Lexer splits a KiCad s-expression stream into tokens. Input is read
// incrementally so large boards never need to be held as one string.
type Lexer struct {
	r      *bufio.Reader
	line   int
	peeked rune
	ok     bool // peeked holds a rune
}

// NewLexer creates a lexer reading from r
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{r: bufio.NewReader(r), line: 1}
}

// Next returns the next token. The end of input yields TokenEOF.
func (l *Lexer) Next() (Token, error) {
	for {
		ch, err := l.peek()
		if errors.Is(err, io.EOF) {
			return Token{Kind: TokenEOF, Line: l.line}, nil
		}
		if err != nil {
			return Token{}, err
		}
		if !unicode.IsSpace(ch) {
			break
		}
		l.read()
	}

	line := l.line
	ch, _ := l.peek()
	switch ch {
	case '(':
		l.read()
		return Token{Kind: TokenOpen, Text: "(", Line: line}, nil
	case ')':
		l.read()
		return Token{Kind: TokenClose, Text: ")", Line: line}, nil
	case '"':
		text, err := l.quoted()
		if err != nil {
			return Token{}, fmt.Errorf("line %d: %w", line, err)
		}
		return Token{Kind: TokenString, Text: text, Line: line}, nil
	}
	return Token{Kind: TokenAtom, Text: l.atom(), Line: line}, nil
}

func (l *Lexer) peek() (rune, error) {
	if l.ok {
		return l.peeked, nil
	}
	ch, _, err := l.r.ReadRune()
	if err != nil {
		return 0, err
	}
	l.peeked, l.ok = ch, true
	return ch, nil
}

func (l *Lexer) read() (rune, error) {
	ch, err := l.peek()
	if err != nil {
		return 0, err
	}
	l.ok = false
	if ch == '\n' {
		l.line++
	}
	return ch, nil
}

// quoted reads a double quoted string. Backslash escapes the next rune and
// a doubled quote stands for one quote character.
func (l *Lexer) quoted() (string, error) {
	l.read()

	var sb strings.Builder
	for {
		ch, err := l.read()
		if errors.Is(err, io.EOF) {
			return "", errors.New("unterminated string")
		}
		if err != nil {
			return "", err
		}

		switch ch {
		case '\\':
			next, err := l.read()
			if err != nil {
				return "", errors.New("unterminated string")
			}
			switch next {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(next)
			}
		case '"':
			if next, err := l.peek(); err == nil && next == '"' {
				l.read()
				sb.WriteRune('"')
				continue
			}
			return sb.String(), nil
		default:
			sb.WriteRune(ch)
		}
	}
}

func (l *Lexer) atom() string {
	var sb strings.Builder
	for {
		ch, err := l.peek()
		if err != nil || unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			return sb.String()
		}
		l.read()
		sb.WriteRune(ch)
	}
}
