package search

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractText turns an HTML document into readable plain text. Script,
// style and navigation subtrees are skipped; block elements become
// paragraph breaks; runs of whitespace collapse to one space.
func ExtractText(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return ""
	}

	var b strings.Builder
	walkText(root, &b)
	return tidyText(b.String())
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"aside":    true,
	"form":     true,
	"iframe":   true,
	"svg":      true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "br": true, "blockquote": true, "pre": true,
}

func walkText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && skippedElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b)
	}
	if n.Type == html.ElementNode && blockElements[n.Data] {
		b.WriteString("\n\n")
	}
}

// tidyText collapses intra-paragraph whitespace and drops empty
// paragraphs.
func tidyText(raw string) string {
	var paras []string
	for _, para := range strings.Split(raw, "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if para != "" {
			paras = append(paras, para)
		}
	}
	return strings.Join(paras, "\n\n")
}
