package olx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FieldExtractor reads one value from within a card.
type FieldExtractor interface {
	Extract(scope *goquery.Selection) (string, bool)
}

// TextSelector returns the text of the first non-empty match.
type TextSelector struct {
	Selector string
}

func (t TextSelector) Extract(scope *goquery.Selection) (string, bool) {
	var out string
	scope.Find(t.Selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		out = cleanText(el.Text())
		return out == ""
	})
	return out, out != ""
}

// AttributeSelector returns an attribute of the first match that has one,
// optionally falling back to the match text. Values matching Reject are
// skipped.
type AttributeSelector struct {
	Selector     string
	Attr         string
	TextFallback bool
	Reject       *regexp.Regexp
}

func (a AttributeSelector) Extract(scope *goquery.Selection) (string, bool) {
	var out string
	scope.Find(a.Selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		val := strings.TrimSpace(el.AttrOr(a.Attr, ""))
		if val == "" && a.TextFallback {
			val = cleanText(el.Text())
		}
		if val == "" || (a.Reject != nil && a.Reject.MatchString(val)) {
			return true
		}
		out = val
		return false
	})
	return out, out != ""
}

// RegexValidatedSelector returns the text of the first match that
// satisfies Pattern.
type RegexValidatedSelector struct {
	Selector string
	Pattern  *regexp.Regexp
}

func (r RegexValidatedSelector) Extract(scope *goquery.Selection) (string, bool) {
	var out string
	scope.Find(r.Selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		txt := cleanText(el.Text())
		if txt == "" || !r.Pattern.MatchString(txt) {
			return true
		}
		out = txt
		return false
	})
	return out, out != ""
}

// compile turns a FieldRule into the matching FieldExtractor.
func (f FieldRule) compile() (FieldExtractor, error) {
	if f.Pattern != "" {
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", f.Pattern, err)
		}
		return RegexValidatedSelector{Selector: f.Selector, Pattern: re}, nil
	}

	if f.Attr != "" {
		var reject *regexp.Regexp
		if f.Reject != "" {
			re, err := regexp.Compile(f.Reject)
			if err != nil {
				return nil, fmt.Errorf("reject %q: %w", f.Reject, err)
			}
			reject = re
		}
		return AttributeSelector{
			Selector:     f.Selector,
			Attr:         f.Attr,
			TextFallback: f.TextFallback,
			Reject:       reject,
		}, nil
	}

	return TextSelector{Selector: f.Selector}, nil
}

func compileRules(rules []FieldRule) ([]FieldExtractor, error) {
	out := make([]FieldExtractor, 0, len(rules))
	for _, r := range rules {
		fe, err := r.compile()
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", r.Selector, err)
		}
		out = append(out, fe)
	}
	return out, nil
}

// firstOf tries each extractor in order.
func firstOf(extractors []FieldExtractor, scope *goquery.Selection) (string, bool) {
	for _, fe := range extractors {
		if v, ok := fe.Extract(scope); ok {
			return v, true
		}
	}
	return "", false
}

// cleanText collapses whitespace runs into single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
