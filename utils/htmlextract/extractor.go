// Package htmlextract converts a streamed HTML response body into plain
// article text. It prunes non-content regions (scripts, navigation, ads,
// share widgets) and stops reading the underlying stream once an output
// budget is reached, so adversarial pages cannot burn unbounded CPU.
//
// Text is emitted raw, without entity decoding. Decoding is the
// summarization step's responsibility; keeping the stored content undecoded
// avoids double-decoding when that step retries.
package htmlextract

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultMaxChars is the output budget when Options.MaxChars is unset.
const DefaultMaxChars = 10 * 1024

// prunedTags have their entire subtree dropped before any text collection.
var prunedTags = map[string]bool{
	"script": true, "style": true, "nav": true, "header": true,
	"footer": true, "aside": true, "menu": true, "form": true,
	"svg": true, "canvas": true, "iframe": true, "noscript": true,
	"title": true,
}

// mutedTags keep their subtree open but contribute no text.
var mutedTags = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true,
}

// voidTags never receive a closing tag, so they are not pushed on the
// element stack.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// skipPattern matches class/id values that mark boilerplate containers.
var skipPattern = regexp.MustCompile(`(?i)\b(nav|menu|menu-item|header|footer|sidebar|aside|advertisement|ad-|promo|banner|widget|share|social|comment|related|recommend)\b`)

// Options configures a single extraction.
type Options struct {
	// MaxChars bounds the emitted text in bytes. Zero means DefaultMaxChars.
	MaxChars int
	// Debug interleaves element markers like [div] and text-owner markers
	// like (p) for human inspection. Debug output must never be fed to the
	// summarizer.
	Debug bool
}

// Extractor is a streaming text sink over an HTML byte stream.
type Extractor struct {
	opts Options
}

func NewExtractor(opts Options) *Extractor {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}

	return &Extractor{opts: opts}
}

type frame struct {
	tag        string
	suppressed bool
}

// Extract consumes body and returns the collected plain text, truncated to
// the configured budget. When the budget is reached the body is closed to
// cancel the underlying transport. An empty string means no usable text was
// collected.
func (e *Extractor) Extract(body io.ReadCloser) string {
	tokenizer := html.NewTokenizer(body)

	var (
		out     strings.Builder
		stack   []frame
		stopped bool
	)

	suppressed := func() bool {
		return len(stack) > 0 && stack[len(stack)-1].suppressed
	}

	ownerTag := func() string {
		if len(stack) == 0 {
			return "text"
		}
		return stack[len(stack)-1].tag
	}

	for !stopped {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF or a transport error mid-stream: either way, keep
			// whatever was collected so far.
			stopped = true

		case html.StartTagToken, html.SelfClosingTagToken:
			name, attrs := readTag(tokenizer)

			sup := suppressed() || prunedTags[name] || mutedTags[name] || matchesSkipAttrs(attrs)

			if e.opts.Debug && !sup {
				out.WriteString("[" + name + "]")
			}

			if !voidTags[name] {
				stack = append(stack, frame{tag: name, suppressed: sup})
			}

		case html.EndTagToken:
			name, _ := readTag(tokenizer)
			// Pop to the matching open element; tolerate misnested markup
			// by leaving the stack untouched when no match exists.
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].tag == name {
					stack = stack[:i]
					break
				}
			}

		case html.TextToken:
			if suppressed() {
				continue
			}

			// Raw token bytes: no entity decoding here.
			text := strings.TrimSpace(string(tokenizer.Raw()))
			if text == "" {
				continue
			}

			if e.opts.Debug {
				out.WriteString("(" + ownerTag() + ")")
			}

			if out.Len() > 0 {
				out.WriteByte(' ')
			}
			out.WriteString(text)

			if out.Len() >= e.opts.MaxChars {
				// Budget reached: cancel the byte stream.
				_ = body.Close()
				stopped = true
			}
		}
	}

	result := out.String()
	if len(result) > e.opts.MaxChars {
		// Back the cut off to a rune boundary so the budget never leaves a
		// split multi-byte character at the tail.
		cut := e.opts.MaxChars
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = result[:cut]
	}

	if strings.TrimSpace(result) == "" {
		return ""
	}

	return result
}

type attr struct {
	key string
	val string
}

func readTag(tokenizer *html.Tokenizer) (string, []attr) {
	name, hasAttr := tokenizer.TagName()

	var attrs []attr
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = tokenizer.TagAttr()
		attrs = append(attrs, attr{key: string(key), val: string(val)})
	}

	return strings.ToLower(string(name)), attrs
}

func matchesSkipAttrs(attrs []attr) bool {
	for _, a := range attrs {
		if a.key != "class" && a.key != "id" {
			continue
		}
		if skipPattern.MatchString(a.val) {
			return true
		}
	}

	return false
}
