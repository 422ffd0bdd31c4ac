package scan

import (
	"fmt"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
)

// Tags whose URL attributes point at navigation targets rather than assets.
var navigationTags = map[string]bool{
	"a":    true,
	"area": true,
	"base": true,
	"form": true,
}

var urlAttrs = map[string]bool{
	"src":    true,
	"href":   true,
	"poster": true,
	"data":   true,
}

// HTML finds asset references in a document: URL attributes, srcset
// candidates, and url() references in inline styles.
func HTML(data []byte) ([]string, error) {
	var refs refSet
	l := html.NewLexer(parse.NewInputBytes(data))
	tag := ""
	for {
		tt, text := l.Next()
		switch tt {
		case html.ErrorToken:
			if err := lexErr(l.Err()); err != nil {
				return nil, fmt.Errorf("html: %w", err)
			}
			return refs.refs, nil
		case html.StartTagToken:
			tag = string(l.Text())
		case html.EndTagToken:
			tag = ""
		case html.AttributeToken:
			if navigationTags[tag] {
				continue
			}
			key := strings.ToLower(string(l.AttrKey()))
			val := Unquote(string(l.AttrVal()))
			switch {
			case urlAttrs[key]:
				refs.add(val)
			case key == "srcset":
				for _, candidate := range strings.Split(val, ",") {
					if fields := strings.Fields(candidate); len(fields) > 0 {
						refs.add(fields[0])
					}
				}
			case key == "style":
				if err := scanCSS([]byte(val), &refs); err != nil {
					return nil, err
				}
			}
		case html.TextToken:
			if tag == "style" {
				if err := scanCSS(text, &refs); err != nil {
					return nil, err
				}
			}
		}
	}
}
