package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// NotAvailable is written for limits that could not be extracted.
const NotAvailable = "N/A"

// Extractor reads individual fields from parsed pages. Implementations must treat an
// absent element as a normal outcome and return the field's default.
type Extractor interface {
	Streak(doc *goquery.Document) Field[int]
	ProblemsSolved(doc *goquery.Document) Field[int]
	TimeLimit(doc *goquery.Document) Field[string]
	MemoryLimit(doc *goquery.Document) Field[string]
	Description(doc *goquery.Document) Field[string]
}

// ClassExtractor locates fields by the class names Codeforces renders today.
type ClassExtractor struct {
	CountersRowClass  string
	CounterClass      string
	CounterValueClass string
	TimeLimitClass    string
	TimeLimitLabel    string
	MemoryLimitClass  string
	MemoryLimitLabel  string
	StatementClass    string
	HeaderClass       string
}

// NewClassExtractor returns an extractor configured for the current page markup.
func NewClassExtractor() *ClassExtractor {
	return &ClassExtractor{
		CountersRowClass:  "_UserActivityFrame_countersRow",
		CounterClass:      "_UserActivityFrame_counter",
		CounterValueClass: "_UserActivityFrame_counterValue",
		TimeLimitClass:    "time-limit",
		TimeLimitLabel:    "time limit per test",
		MemoryLimitClass:  "memory-limit",
		MemoryLimitLabel:  "memory limit per test",
		StatementClass:    "problem-statement",
		HeaderClass:       "header",
	}
}

var (
	digitsPattern   = regexp.MustCompile(`\d+`)
	innerWhitespace = regexp.MustCompile(`\s+`)
)

// ParseDocument parses raw page markup.
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Streak reads the first counter of the activity counters row.
func (x *ClassExtractor) Streak(doc *goquery.Document) Field[int] {
	row := doc.Find("div." + x.CountersRowClass).First()
	if row.Length() == 0 {
		return Miss(0, ReasonElementMissing)
	}
	counter := row.Find("div." + x.CounterClass).First()
	if counter.Length() == 0 {
		return Miss(0, ReasonElementMissing)
	}
	return firstNumberField(counter.Find("div." + x.CounterValueClass).First())
}

// ProblemsSolved reads the first counter value on the page.
func (x *ClassExtractor) ProblemsSolved(doc *goquery.Document) Field[int] {
	value := doc.Find("div." + x.CounterValueClass).First()
	if value.Length() == 0 {
		return Miss(0, ReasonElementMissing)
	}
	return firstNumberField(value)
}

// TimeLimit reads the time-limit property without its label.
func (x *ClassExtractor) TimeLimit(doc *goquery.Document) Field[string] {
	return labelledField(doc.Find("div."+x.TimeLimitClass).First(), x.TimeLimitLabel)
}

// MemoryLimit reads the memory-limit property without its label.
func (x *ClassExtractor) MemoryLimit(doc *goquery.Document) Field[string] {
	return labelledField(doc.Find("div."+x.MemoryLimitClass).First(), x.MemoryLimitLabel)
}

// Description serialises the problem statement body as plain text: the header block is
// skipped, block elements become line breaks, whitespace inside a line is collapsed and
// preformatted samples keep their own lines. TeX delimiters are left as rendered.
func (x *ClassExtractor) Description(doc *goquery.Document) Field[string] {
	statement := doc.Find("div." + x.StatementClass).First()
	if statement.Length() == 0 {
		return Miss("", ReasonElementMissing)
	}

	w := &textWriter{}
	for c := statement.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if hasClass(c, x.HeaderClass) {
			continue
		}
		w.walk(c)
	}
	w.flush()
	return Hit(strings.Join(w.lines, "\n"))
}

// ExtractProfile runs the profile extractors over body.
func ExtractProfile(x Extractor, body []byte) ProfileFields {
	doc, err := ParseDocument(body)
	if err != nil {
		return UnavailableProfile()
	}
	return ProfileFields{
		Streak:         x.Streak(doc),
		ProblemsSolved: x.ProblemsSolved(doc),
	}
}

// ExtractProblem runs the problem page extractors over body.
func ExtractProblem(x Extractor, body []byte) ProblemFields {
	doc, err := ParseDocument(body)
	if err != nil {
		return UnavailableProblem()
	}
	return ProblemFields{
		TimeLimit:   x.TimeLimit(doc),
		MemoryLimit: x.MemoryLimit(doc),
		Description: x.Description(doc),
	}
}

// FirstNumber returns the first run of digits in text.
func FirstNumber(text string) (int, bool) {
	match := digitsPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

// StripLabel removes label from text and trims the remainder.
func StripLabel(text, label string) string {
	if label != "" {
		text = strings.ReplaceAll(text, label, "")
	}
	return strings.TrimSpace(text)
}

func firstNumberField(sel *goquery.Selection) Field[int] {
	if sel.Length() == 0 {
		return Miss(0, ReasonElementMissing)
	}
	n, ok := FirstNumber(StrippedText(sel.Get(0)))
	if !ok {
		return Miss(0, ReasonNoDigits)
	}
	return Hit(n)
}

func labelledField(sel *goquery.Selection, label string) Field[string] {
	if sel.Length() == 0 {
		return Miss(NotAvailable, ReasonElementMissing)
	}
	return Hit(StripLabel(StrippedText(sel.Get(0)), label))
}

// StrippedText concatenates every descendant text node after trimming each one.
func StrippedText(node *html.Node) string {
	var buffer strings.Builder
	strippedTextRecursive(node, &buffer)
	return buffer.String()
}

func strippedTextRecursive(node *html.Node, buffer *strings.Builder) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(strings.TrimSpace(node.Data))
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		strippedTextRecursive(child, buffer)
	}
}

func hasClass(node *html.Node, class string) bool {
	if node == nil || node.Type != html.ElementNode || class == "" {
		return false
	}
	for _, attr := range node.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"table": true, "tr": true, "h1": true, "h2": true, "h3": true, "center": true,
}

type textWriter struct {
	lines   []string
	current strings.Builder
}

func (w *textWriter) flush() {
	line := strings.TrimSpace(innerWhitespace.ReplaceAllString(w.current.String(), " "))
	if line != "" {
		w.lines = append(w.lines, line)
	}
	w.current.Reset()
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.current.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "script", "style":
			return
		case "pre":
			w.flush()
			var raw strings.Builder
			preText(n, &raw)
			for _, line := range strings.Split(raw.String(), "\n") {
				line = strings.TrimRight(line, " \t\r")
				if strings.TrimSpace(line) != "" {
					w.lines = append(w.lines, line)
				}
			}
			return
		}
		block := blockElements[n.Data]
		if block {
			w.flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c)
		}
		if block {
			w.flush()
		}
	}
}

// preText keeps newlines, turning <br> and line <div>s into line breaks.
func preText(n *html.Node, buffer *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			buffer.WriteString(c.Data)
		case c.Type == html.ElementNode && c.Data == "br":
			buffer.WriteByte('\n')
		case c.Type == html.ElementNode:
			preText(c, buffer)
			if c.Data == "div" {
				buffer.WriteByte('\n')
			}
		}
	}
}
