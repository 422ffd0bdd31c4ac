package scan

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// CSS finds @import targets and url() references in a stylesheet.
func CSS(data []byte) ([]string, error) {
	var refs refSet
	if err := scanCSS(data, &refs); err != nil {
		return nil, err
	}
	return refs.refs, nil
}

func scanCSS(data []byte, refs *refSet) error {
	l := css.NewLexer(parse.NewInputBytes(data))
	inImport := false
	for {
		tt, text := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := lexErr(l.Err()); err != nil {
				return fmt.Errorf("css: %w", err)
			}
			return nil
		case css.AtKeywordToken:
			inImport = strings.EqualFold(string(text), "@import")
		case css.SemicolonToken, css.LeftBraceToken:
			inImport = false
		case css.StringToken:
			if inImport {
				refs.add(Unquote(string(text)))
				inImport = false
			}
		case css.URLToken:
			refs.add(URLValue(text))
			inImport = false
		}
	}
}

// URLValue returns the target of a url(...) token.
func URLValue(token []byte) string {
	s := string(token)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), ")")
	return Unquote(strings.TrimSpace(s))
}
