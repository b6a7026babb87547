package web

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ForEachNode applies a function to the given node and each of its
// descendants. It stops at the first error.
func ForEachNode(node *html.Node, fn func(n *html.Node) error) error {
	var iter func(n *html.Node) error
	iter = func(n *html.Node) error {
		err := fn(n)
		if err != nil {
			return err
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			err := iter(c)
			if err != nil {
				return err
			}
		}

		return nil
	}

	return iter(node)
}

// NodesWithDataVal returns a slice of all descendant element nodes whose
// "data" field has the given value.
func NodesWithDataVal(node *html.Node, dataName string) []*html.Node {
	var nodes []*html.Node

	ForEachNode(node, func(n *html.Node) error {
		if n.Type == html.ElementNode && n.Data == dataName {
			nodes = append(nodes, n)
		}
		return nil
	})

	return nodes
}

// textContent concatenates the text nodes beneath n.
func textContent(n *html.Node) string {
	sb := strings.Builder{}
	ForEachNode(n, func(c *html.Node) error {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return nil
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Title parses an html document and returns the text of its first <title>
// element, or the first <h1> if there is no title. It returns the empty string
// if the document has neither. Stud.IP answers with html pages for login
// prompts and server errors, and the title is usually the only useful part.
func Title(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	for _, tag := range []string{"title", "h1"} {
		for _, n := range NodesWithDataVal(doc, tag) {
			if t := textContent(n); t != "" {
				return t, nil
			}
		}
	}

	return "", nil
}
