package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Product is one line of the catalog source file
type Product struct {
	Category string `json:"category"`
	Name     string `json:"product_name"`
	Price    string `json:"price"`
	Line     int    `json:"line"`
	Source   string `json:"source"`
	Raw      string `json:"raw"` // trimmed line, embedded as the document content
}

// Metadata is stored next to the embedding and surfaced on retrieval
func (p Product) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"category":     p.Category,
		"product_name": p.Name,
		"price":        p.Price,
		"source":       p.Source,
		"line":         p.Line,
	}
}

// ParseError reports a malformed catalog line
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("catalog line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// ParseLine parses "Category: ProductName - Price". The category ends at the
// first colon and the name ends at the first hyphen after it.
func ParseLine(line string, lineNo int) (Product, error) {
	raw := strings.TrimSpace(line)

	category, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return Product{}, &ParseError{Line: lineNo, Text: raw, Reason: "missing ':' between category and product"}
	}
	name, price, ok := strings.Cut(rest, "-")
	if !ok {
		return Product{}, &ParseError{Line: lineNo, Text: raw, Reason: "missing '-' between product and price"}
	}

	p := Product{
		Category: strings.TrimSpace(category),
		Name:     strings.TrimSpace(name),
		Price:    strings.TrimSpace(price),
		Line:     lineNo,
		Raw:      raw,
	}
	if p.Category == "" || p.Name == "" || p.Price == "" {
		return Product{}, &ParseError{Line: lineNo, Text: raw, Reason: "empty category, product or price"}
	}
	return p, nil
}

// Parse reads every non-blank line. It stops at the first malformed one.
func Parse(r io.Reader, source string) ([]Product, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var products []Product
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		p, err := ParseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		p.Source = source
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return products, nil
}

// ParseFile parses a catalog file. Products are tagged with the file's base name.
func ParseFile(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}
