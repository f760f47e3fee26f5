package script

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
)

// kwPrefix marks keyword strings produced by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites console source into something zygomys reads:
//
//   - ; line comments become // comments
//   - :keyword becomes the string "__kw_keyword"
//   - kebab-case identifiers become snake_case (zygomys reads a-b as a
//     subtraction)
//
// String literals pass through untouched.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)

	for i := 0; i < len(source); {
		c := source[i]
		switch {
		case c == '"' || c == '`':
			j := skipString(source, i)
			out.WriteString(source[i:j])
			i = j

		case c == ';':
			out.WriteString("//")
			for i < len(source) && source[i] == ';' {
				i++
			}
			j := strings.IndexByte(source[i:], '\n')
			if j < 0 {
				j = len(source) - i
			}
			out.WriteString(source[i : i+j])
			i += j

		case c == ':' && i+1 < len(source) && source[i+1] == '=':
			out.WriteString(":=")
			i += 2

		case c == ':' && i+1 < len(source) && isLetter(source[i+1]):
			j := i + 1
			for j < len(source) && isKeywordChar(source[j]) {
				j++
			}
			fmt.Fprintf(&out, "%q", kwPrefix+source[i+1:j])
			i = j

		case c == '-' && i > 0 && i+1 < len(source) && isIdentChar(source[i-1]) && isLetter(source[i+1]):
			out.WriteByte('_')
			i++

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// skipString returns the index just past the string literal starting at i.
// Double-quoted strings honour backslash escapes; backtick strings do not.
func skipString(s string, i int) int {
	quote := s[i]
	j := i + 1
	for j < len(s) && s[j] != quote {
		if quote == '"' && s[j] == '\\' {
			j++
		}
		j++
	}
	if j < len(s) {
		j++
	}
	if j > len(s) {
		j = len(s)
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isKeywordChar(c byte) bool {
	return isIdentChar(c) || c == '-'
}

// ---------------------------------------------------------------------------
// Arguments
// ---------------------------------------------------------------------------

// args splits a builtin's arguments into positional values and keyword
// values.
type args struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(in []zygo.Sexp) args {
	a := args{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(in); i++ {
		name, ok := keyword(in[i])
		if !ok {
			a.positional = append(a.positional, in[i])
			continue
		}
		if i+1 < len(in) {
			if _, next := keyword(in[i+1]); !next {
				a.kw[name] = in[i+1]
				i++
				continue
			}
		}
		// A trailing or back-to-back keyword is a flag.
		a.kw[name] = zygo.SexpNull
	}
	return a
}

// floats reads n numbers, positionally first and then from the named
// keywords, so (box 10 20 30) and (box :width 10 :height 20 :depth 30)
// agree.
func (a args) floats(builtin string, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		var s zygo.Sexp
		switch {
		case i < len(a.positional):
			s = a.positional[i]
		case a.kw[name] != nil:
			s = a.kw[name]
		default:
			return nil, fmt.Errorf("%s: missing %s", builtin, name)
		}
		v, err := toFloat64(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", builtin, name, err)
		}
		out[i] = v
	}
	return out, nil
}

// float reads an optional keyword number.
func (a args) float(builtin, name string, def float64) (float64, error) {
	s, ok := a.kw[name]
	if !ok {
		return def, nil
	}
	v, err := toFloat64(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", builtin, name, err)
	}
	return v, nil
}

// keyword reports the name of a preprocessed keyword.
func keyword(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %s", s.SexpString(nil))
}

// toName accepts a keyword or a plain string.
func toName(s zygo.Sexp) (string, error) {
	if name, ok := keyword(s); ok {
		return name, nil
	}
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected keyword or string, got %s", s.SexpString(nil))
}
