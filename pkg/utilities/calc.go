package utilities

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidExpression = errors.New("invalid expression")

// Calculate evaluates an arithmetic expression made of numbers, + - * / and
// parentheses. Anything else, including division by zero, is rejected.
func Calculate(expr string) (float64, error) {
	p := &parser{src: strings.ReplaceAll(expr, " ", "")}
	if p.src == "" {
		return 0, ErrInvalidExpression
	}
	v, err := p.expr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.src) {
		return 0, ErrInvalidExpression
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidExpression
	}
	return v, nil
}

// FormatNumber prints v without a trailing ".0" for whole numbers.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

// expr := term (('+'|'-') term)*
func (p *parser) expr() (float64, error) {
	v, err := p.term()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.term()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			p.pos++
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

// term := factor (('*'|'/') factor)*
func (p *parser) term() (float64, error) {
	v, err := p.factor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			r, err := p.factor()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			p.pos++
			r, err := p.factor()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, ErrInvalidExpression
			}
			v /= r
		default:
			return v, nil
		}
	}
}

// factor := ('+'|'-') factor | '(' expr ')' | number
func (p *parser) factor() (float64, error) {
	switch c := p.peek(); {
	case c == '-':
		p.pos++
		v, err := p.factor()
		return -v, err
	case c == '+':
		p.pos++
		return p.factor()
	case c == '(':
		p.depth++
		if p.depth > 64 {
			return 0, ErrInvalidExpression
		}
		p.pos++
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, ErrInvalidExpression
		}
		p.pos++
		p.depth--
		return v, nil
	}
	return p.number()
}

func (p *parser) number() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) && (p.src[p.pos] >= '0' && p.src[p.pos] <= '9' || p.src[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, ErrInvalidExpression
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, ErrInvalidExpression
	}
	return v, nil
}
