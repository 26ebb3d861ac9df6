package fetch

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var multiSpacePattern = regexp.MustCompile(`\s+`)

// Elements that never carry article text.
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true, "svg": true,
	"nav": true, "header": true, "footer": true, "aside": true, "form": true,
	"button": true, "select": true, "template": true, "head": true,
}

// Elements that end a text block.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true, "td": true, "th": true,
	"blockquote": true, "pre": true, "br": true, "figcaption": true, "dd": true, "dt": true,
}

// minBlockWords drops menu entries, bylines and button labels.
const minBlockWords = 4

// ExtractText returns the readable blocks of an HTML document, one per line.
// Blocks repeated anywhere on the page (cookie banners, share widgets) are
// kept once.
func ExtractText(htmlContent string, includeLinks bool) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	e := &extractor{includeLinks: includeLinks, seen: make(map[string]bool)}
	e.walk(doc, 0)
	e.flush()

	return strings.Join(e.blocks, "\n"), nil
}

type extractor struct {
	includeLinks bool
	current      strings.Builder
	blocks       []string
	seen         map[string]bool
}

func (e *extractor) walk(n *html.Node, depth int) {
	if depth > 200 {
		return
	}

	switch n.Type {
	case html.TextNode:
		e.current.WriteString(n.Data)
		e.current.WriteString(" ")
		return
	case html.ElementNode:
		if skipElements[n.Data] {
			return
		}
		if blockElements[n.Data] {
			e.flush()
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.walk(c, depth+1)
	}

	if n.Type == html.ElementNode {
		if n.Data == "a" && e.includeLinks {
			if href := attr(n, "href"); strings.HasPrefix(href, "http") {
				e.current.WriteString("(" + href + ") ")
			}
		}
		if blockElements[n.Data] {
			e.flush()
		}
	}
}

func (e *extractor) flush() {
	text := strings.TrimSpace(multiSpacePattern.ReplaceAllString(e.current.String(), " "))
	e.current.Reset()

	if len(strings.Fields(text)) < minBlockWords {
		return
	}
	key := strings.ToLower(text)
	if e.seen[key] {
		return
	}
	e.seen[key] = true
	e.blocks = append(e.blocks, text)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
