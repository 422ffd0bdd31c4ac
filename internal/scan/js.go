package scan

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

type jsToken struct {
	tt   js.TokenType
	text string
}

// JS finds module specifiers in static imports and re-exports, dynamic
// import() calls and require() calls with a string literal argument.
func JS(data []byte) ([]string, error) {
	tokens, err := jsTokens(data)
	if err != nil {
		return nil, err
	}

	var refs refSet
	stringAt := func(i int) (string, bool) {
		if i < len(tokens) && tokens[i].tt == js.StringToken {
			return Unquote(tokens[i].text), true
		}
		return "", false
	}
	parenAt := func(i int) bool {
		return i < len(tokens) && tokens[i].tt == js.OpenParenToken
	}

	inDecl := false
	for i, tok := range tokens {
		switch {
		case tok.tt == js.ImportToken && parenAt(i+1):
			if s, ok := stringAt(i + 2); ok {
				refs.add(s)
			}
		case tok.tt == js.ImportToken:
			if s, ok := stringAt(i + 1); ok {
				refs.add(s)
				continue
			}
			inDecl = true
		case tok.tt == js.ExportToken:
			inDecl = true
		case tok.tt == js.FromToken && inDecl:
			if s, ok := stringAt(i + 1); ok {
				refs.add(s)
				inDecl = false
			}
		case tok.tt == js.SemicolonToken:
			inDecl = false
		case tok.tt == js.IdentifierToken && tok.text == "require" && parenAt(i+1):
			if i > 0 && tokens[i-1].tt == js.DotToken {
				continue
			}
			if s, ok := stringAt(i + 2); ok {
				refs.add(s)
			}
		}
	}
	return refs.refs, nil
}

// Token is one lexed JavaScript token.
type Token struct {
	Type js.TokenType
	Text []byte
}

// Trivia reports whether the token is whitespace or a comment.
func (t Token) Trivia() bool {
	switch t.Type {
	case js.WhitespaceToken, js.LineTerminatorToken, js.CommentToken, js.CommentLineTerminatorToken:
		return true
	}
	return false
}

// LexJS returns every token of a script, whitespace and comments included,
// so that concatenating the texts reproduces the input. A slash is re-read
// as a regular expression wherever an expression may start.
func LexJS(data []byte) ([]Token, error) {
	l := js.NewLexer(parse.NewInputBytes(data))
	var out []Token
	var significant []jsToken
	for {
		tt, text := l.Next()
		switch tt {
		case js.ErrorToken:
			if err := lexErr(l.Err()); err != nil {
				return nil, fmt.Errorf("js: %w", err)
			}
			return out, nil
		case js.DivToken, js.DivEqToken:
			if expressionStart(significant) {
				tt, text = l.RegExp()
				if tt == js.ErrorToken {
					return nil, fmt.Errorf("js: %w", l.Err())
				}
			}
		}
		tok := Token{Type: tt, Text: append([]byte(nil), text...)}
		out = append(out, tok)
		if !tok.Trivia() {
			significant = append(significant, jsToken{tt: tt, text: string(text)})
		}
	}
}

// jsTokens returns the significant tokens of a script.
func jsTokens(data []byte) ([]jsToken, error) {
	all, err := LexJS(data)
	if err != nil {
		return nil, err
	}
	var out []jsToken
	for _, tok := range all {
		if !tok.Trivia() {
			out = append(out, jsToken{tt: tok.Type, text: string(tok.Text)})
		}
	}
	return out, nil
}

// expressionStart reports whether the next token begins an expression,
// which is where a slash opens a regular expression instead of dividing.
func expressionStart(prev []jsToken) bool {
	if len(prev) == 0 {
		return true
	}
	last := prev[len(prev)-1].tt
	switch {
	case last == js.CloseParenToken, last == js.CloseBracketToken, last == js.CloseBraceToken:
		return false
	case last == js.StringToken, last == js.RegExpToken, last == js.TemplateToken, last == js.TemplateEndToken:
		return false
	case last == js.ThisToken, last == js.SuperToken, last == js.TrueToken, last == js.FalseToken, last == js.NullToken:
		return false
	case js.IsNumeric(last), js.IsIdentifier(last):
		return false
	case last == js.PostIncrToken, last == js.PostDecrToken, last == js.IncrToken, last == js.DecrToken:
		return false
	}
	return true
}
