package studytool

import (
	"errors"
	"fmt"
	"go/scanner"
	"go/token"
	"math"
	"strconv"
	"strings"
)

var errNotArithmetic = errors.New("not an arithmetic expression")

type lexeme struct {
	tok token.Token
	lit string
}

// evaluate computes a plain arithmetic expression: numbers, + - * / %,
// ^ or ** for powers, parentheses, the constants pi and e, and the
// functions sqrt abs ln log exp sin cos tan.
func evaluate(expr string) (float64, error) {
	lexemes, err := lex(expr)
	if err != nil {
		return 0, err
	}
	p := &parser{in: lexemes}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.peek().tok != token.EOF {
		return 0, fmt.Errorf("%w: unexpected %q", errNotArithmetic, p.peek().text())
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result is undefined")
	}
	return v, nil
}

func lex(expr string) ([]lexeme, error) {
	src := []byte(strings.NewReplacer("×", "*", "÷", "/", "−", "-").Replace(expr))
	var (
		s    scanner.Scanner
		errs scanner.ErrorList
	)
	fset := token.NewFileSet()
	file := fset.AddFile("expr", fset.Base(), len(src))
	s.Init(file, src, func(pos token.Position, msg string) { errs.Add(pos, msg) }, 0)

	var out []lexeme
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		// The scanner inserts a semicolon at the end of the line.
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		out = append(out, lexeme{tok: tok, lit: lit})
	}
	if errs.Len() > 0 {
		return nil, fmt.Errorf("%w: %v", errNotArithmetic, errs.Err())
	}
	return append(out, lexeme{tok: token.EOF}), nil
}

func (l lexeme) text() string {
	if l.lit != "" {
		return l.lit
	}
	return l.tok.String()
}

type parser struct {
	in  []lexeme
	pos int
}

func (p *parser) peek() lexeme { return p.in[p.pos] }

func (p *parser) next() lexeme {
	l := p.in[p.pos]
	if l.tok != token.EOF {
		p.pos++
	}
	return l
}

// expr := term (('+'|'-') term)*
func (p *parser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek().tok {
		case token.ADD:
			p.next()
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v += r
		case token.SUB:
			p.next()
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

// term := unary (('*'|'/'|'%') unary)*
func (p *parser) term() (float64, error) {
	v, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		op := p.peek().tok
		if op != token.MUL && op != token.QUO && op != token.REM {
			return v, nil
		}
		if op == token.MUL && p.in[p.pos+1].tok == token.MUL {
			// "**" is handled as a power by unary.
			return v, nil
		}
		p.next()
		r, err := p.unary()
		if err != nil {
			return 0, err
		}
		switch op {
		case token.MUL:
			v *= r
		case token.QUO:
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= r
		case token.REM:
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v = math.Mod(v, r)
		}
	}
}

// unary := ('-'|'+') unary | power
func (p *parser) unary() (float64, error) {
	switch p.peek().tok {
	case token.SUB:
		p.next()
		v, err := p.unary()
		return -v, err
	case token.ADD:
		p.next()
		return p.unary()
	}
	return p.power()
}

// power := primary (('^'|'**') unary)?
func (p *parser) power() (float64, error) {
	base, err := p.primary()
	if err != nil {
		return 0, err
	}
	switch {
	case p.peek().tok == token.XOR:
		p.next()
	case p.peek().tok == token.MUL && p.in[p.pos+1].tok == token.MUL:
		p.next()
		p.next()
	default:
		return base, nil
	}
	exp, err := p.unary()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

var functions = map[string]func(float64) float64{
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
	"ln":   math.Log,
	"log":  math.Log10,
	"exp":  math.Exp,
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
}

// primary := number | constant | func '(' expr ')' | '(' expr ')'
func (p *parser) primary() (float64, error) {
	l := p.next()
	switch l.tok {
	case token.INT, token.FLOAT:
		v, err := strconv.ParseFloat(l.lit, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad number %q", errNotArithmetic, l.lit)
		}
		return v, nil
	case token.LPAREN:
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.next().tok != token.RPAREN {
			return 0, fmt.Errorf("%w: missing )", errNotArithmetic)
		}
		return v, nil
	case token.IDENT:
		name := strings.ToLower(l.lit)
		switch name {
		case "pi":
			return math.Pi, nil
		case "e":
			return math.E, nil
		}
		fn, ok := functions[name]
		if !ok || p.peek().tok != token.LPAREN {
			return 0, fmt.Errorf("%w: unknown name %q", errNotArithmetic, l.lit)
		}
		arg, err := p.primary()
		if err != nil {
			return 0, err
		}
		return fn(arg), nil
	}
	return 0, fmt.Errorf("%w: unexpected %q", errNotArithmetic, l.text())
}

// formatNumber prints integral values without a fractional part.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}
