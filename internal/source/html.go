package source

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseHTML extracts the first table of a saved page, or the table whose id
// matches selector. The header is the last <thead> row when present,
// otherwise the first row; other <thead> rows are dropped. Cell text is what a reader would see: text nodes joined by
// single spaces, skipping scripts, styles and hidden elements.
func parseHTML(data []byte, selector string) ([]string, [][]string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}

	id := strings.TrimPrefix(strings.TrimSpace(selector), "#")
	table := findTable(doc, id)
	if table == nil {
		if id != "" {
			return nil, nil, fmt.Errorf("no table with id %q", id)
		}
		return nil, nil, fmt.Errorf("no table found")
	}

	var header []string
	var records [][]string
	for _, tr := range tableRows(table) {
		cells := rowCells(tr.node)
		if tr.head {
			// grouping rows come first; the last head row names the columns
			header = cells
			continue
		}
		records = append(records, cells)
	}

	if header == nil && len(records) > 0 {
		header, records = records[0], records[1:]
	}
	return header, records, nil
}

func findTable(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Table {
		if id == "" || attr(n, "id") == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTable(c, id); t != nil {
			return t
		}
	}
	return nil
}

type htmlRow struct {
	node *html.Node
	head bool
}

// tableRows returns the <tr> elements of table in document order without
// descending into nested tables.
func tableRows(table *html.Node) []htmlRow {
	var rows []htmlRow
	var walk func(n *html.Node, head bool)
	walk = func(n *html.Node, head bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				continue
			case atom.Thead:
				walk(c, true)
			case atom.Tr:
				rows = append(rows, htmlRow{node: c, head: head})
			default:
				walk(c, head)
			}
		}
	}
	walk(table, false)
	return rows
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, visibleText(c))
		}
	}
	return cells
}

func visibleText(n *html.Node) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			parts = append(parts, strings.Fields(n.Data)...)
			return
		case html.ElementNode:
			if isHidden(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

func isHidden(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Template, atom.Noscript:
		return true
	}
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "hidden":
			return true
		case "style":
			style := strings.ToLower(strings.ReplaceAll(a.Val, " ", ""))
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
