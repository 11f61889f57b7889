package verifier

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Value is one literal of a VALUES tuple.
type Value struct {
	// Null is true for an unquoted NULL.
	Null bool

	// Quoted is true for a single-quoted text literal.
	Quoted bool

	// Text is the unescaped text of a quoted literal or the raw token
	// otherwise.
	Text string
}

// String returns the text, or "" for NULL.
func (v Value) String() string {
	if v.Null {
		return ""
	}
	return v.Text
}

// Decimal parses the value as a number. NULL is an error.
func (v Value) Decimal() (decimal.Decimal, error) {
	if v.Null {
		return decimal.Zero, fmt.Errorf("NULL is not a number")
	}
	return decimal.NewFromString(v.Text)
}

// Int parses the value as an integer.
func (v Value) Int() (int, error) {
	if v.Null || v.Quoted {
		return 0, fmt.Errorf("%q is not an integer literal", v.Text)
	}
	return strconv.Atoi(v.Text)
}

// ParseValues finds the first top-level VALUES keyword in sql and returns its
// tuples. Keywords inside "--" comments and quoted literals are ignored. A
// statement without VALUES yields no tuples.
func ParseValues(sql string) ([][]Value, error) {
	s := &scanner{src: sql}
	if !s.seekKeyword("VALUES") {
		return nil, nil
	}

	var tuples [][]Value
	for {
		s.skipSpace()
		if !s.consume('(') {
			if len(tuples) == 0 {
				return nil, s.errorf("expected '(' after VALUES")
			}
			return tuples, nil
		}

		tuple, err := s.tuple()
		if err != nil {
			return nil, err
		}
		tuples = append(tuples, tuple)

		s.skipSpace()
		if !s.consume(',') {
			return tuples, nil
		}
	}
}

// scanner walks SQL text one byte at a time.
type scanner struct {
	src string
	pos int
}

func (s *scanner) errorf(format string, args ...any) error {
	line := strings.Count(s.src[:s.pos], "\n") + 1
	return fmt.Errorf("line %d: %s", line, fmt.Sprintf(format, args...))
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte { return s.src[s.pos] }

func (s *scanner) consume(c byte) bool {
	if !s.eof() && s.peek() == c {
		s.pos++
		return true
	}
	return false
}

// skipSpace skips whitespace and "--" comments.
func (s *scanner) skipSpace() {
	for !s.eof() {
		switch {
		case unicode.IsSpace(rune(s.peek())):
			s.pos++
		case strings.HasPrefix(s.src[s.pos:], "--"):
			s.skipComment()
		default:
			return
		}
	}
}

func (s *scanner) skipComment() {
	if i := strings.IndexByte(s.src[s.pos:], '\n'); i >= 0 {
		s.pos += i + 1
		return
	}
	s.pos = len(s.src)
}

// seekKeyword moves past the first occurrence of word that is not inside a
// comment or a quoted literal and stands alone as a word.
func (s *scanner) seekKeyword(word string) bool {
	for !s.eof() {
		switch {
		case strings.HasPrefix(s.src[s.pos:], "--"):
			s.skipComment()
		case s.peek() == '\'':
			if _, err := s.quoted(); err != nil {
				return false
			}
		case isWordByte(s.peek()):
			start := s.pos
			for !s.eof() && isWordByte(s.peek()) {
				s.pos++
			}
			if strings.EqualFold(s.src[start:s.pos], word) {
				return true
			}
		default:
			s.pos++
		}
	}
	return false
}

// tuple parses literals up to the closing parenthesis. The opening one has
// already been consumed.
func (s *scanner) tuple() ([]Value, error) {
	var values []Value
	for {
		s.skipSpace()
		if s.eof() {
			return nil, s.errorf("unterminated tuple")
		}

		var v Value
		if s.peek() == '\'' {
			text, err := s.quoted()
			if err != nil {
				return nil, err
			}
			v = Value{Quoted: true, Text: text}
		} else {
			start := s.pos
			for !s.eof() && s.peek() != ',' && s.peek() != ')' && !unicode.IsSpace(rune(s.peek())) {
				s.pos++
			}
			token := s.src[start:s.pos]
			if token == "" {
				return nil, s.errorf("empty literal")
			}
			v = Value{Text: token, Null: strings.EqualFold(token, "NULL")}
		}
		values = append(values, v)

		s.skipSpace()
		switch {
		case s.consume(','):
		case s.consume(')'):
			return values, nil
		default:
			return nil, s.errorf("expected ',' or ')' in tuple")
		}
	}
}

// quoted reads a single-quoted literal starting at the opening quote and
// returns its unescaped text.
func (s *scanner) quoted() (string, error) {
	s.pos++
	var b strings.Builder
	for !s.eof() {
		c := s.peek()
		s.pos++
		if c != '\'' {
			b.WriteByte(c)
			continue
		}
		if s.consume('\'') {
			b.WriteByte('\'')
			continue
		}
		return b.String(), nil
	}
	return "", s.errorf("unterminated string literal")
}

func isWordByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
