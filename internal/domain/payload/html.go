package payload

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]{2,}`)
)

// ParseHTML parses an HTML document.
func ParseHTML(src []byte) (HTML, error) {
	root, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return HTML{}, fmt.Errorf("parse html: %w", err)
	}
	return HTML{Root: root}, nil
}

// Title returns the document title, or "".
func (h HTML) Title() string {
	var title string
	walk(h.Root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(textContent(n))
			return false
		}
		return true
	})
	return title
}

// Render serializes the document back to HTML.
func (h HTML) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, h.Root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// PlainText returns the visible text with one block per line.
func (h HTML) PlainText() string {
	var buf bytes.Buffer
	writeText(h.Root, &buf, false, 0)
	return cleanText(buf.String())
}

// Markdown converts the document to simplified markdown.
func (h HTML) Markdown() string {
	var buf bytes.Buffer
	writeText(h.Root, &buf, true, 0)
	return cleanText(buf.String())
}

// Select returns a document holding only the nodes matching a simple selector:
// "tag", "#id", ".class" or "tag.class". ok is false when nothing matched.
func (h HTML) Select(selector string) (HTML, bool) {
	tag, id, class := parseSelector(selector)
	var matched []*html.Node
	walk(h.Root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if tag != "" && n.Data != tag {
			return true
		}
		if id != "" && attr(n, "id") != id {
			return true
		}
		if class != "" && !hasClass(n, class) {
			return true
		}
		matched = append(matched, n)
		return false
	})
	if len(matched) == 0 {
		return HTML{}, false
	}

	body := &html.Node{Type: html.ElementNode, Data: "body"}
	for _, n := range matched {
		body.AppendChild(cloneNode(n))
	}
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(body)
	return HTML{Root: doc}, true
}

func parseSelector(s string) (tag, id, class string) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "#"); ok {
		return "", rest, ""
	}
	tag, class, _ = strings.Cut(s, ".")
	return strings.ToLower(tag), "", class
}

func walk(n *html.Node, visit func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func cloneNode(n *html.Node) *html.Node {
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(cloneNode(c))
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func writeText(n *html.Node, sb *bytes.Buffer, md bool, depth int) {
	if depth > 100 {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "head":
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			sb.WriteString("\n\n")
			if md {
				sb.WriteString(strings.Repeat("#", int(n.Data[1]-'0')) + " ")
			}
		case "p", "div", "section", "article", "table", "tr":
			sb.WriteString("\n\n")
		case "br":
			sb.WriteString("\n")
		case "li":
			sb.WriteString("\n- ")
		case "pre":
			if md {
				sb.WriteString("\n\n```\n")
			}
		case "code":
			if md && (n.Parent == nil || n.Parent.Data != "pre") {
				sb.WriteString("`")
			}
		case "strong", "b":
			if md {
				sb.WriteString("**")
			}
		case "em", "i":
			if md {
				sb.WriteString("*")
			}
		case "a":
			if md && linkable(n) {
				sb.WriteString("[")
			}
		case "img":
			if alt := attr(n, "alt"); alt != "" {
				fmt.Fprintf(sb, "[Image: %s]", alt)
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, sb, md, depth+1)
	}

	if n.Type != html.ElementNode || !md {
		return
	}
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		sb.WriteString("\n\n")
	case "pre":
		sb.WriteString("\n```\n\n")
	case "code":
		if n.Parent == nil || n.Parent.Data != "pre" {
			closeMark(sb, "`")
		}
	case "strong", "b":
		closeMark(sb, "**")
	case "em", "i":
		closeMark(sb, "*")
	case "a":
		if linkable(n) {
			closeMark(sb, "]("+attr(n, "href")+")")
		}
	}
}

// closeMark writes a closing inline marker flush against the preceding text.
func closeMark(buf *bytes.Buffer, mark string) {
	b := buf.Bytes()
	n := len(b)
	for n > 0 && b[n-1] == ' ' {
		n--
	}
	buf.Truncate(n)
	buf.WriteString(mark)
	buf.WriteByte(' ')
}

func linkable(n *html.Node) bool {
	href := attr(n, "href")
	return href != "" && !strings.HasPrefix(href, "#")
}

func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(multiSpacePattern.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = multiNewlinePattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
