// Package sanitize restricts third-party article markup to a small
// whitelisted subset and makes every embedded URL absolute.
package sanitize

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"news-crawler/pkg/urls"
)

// DefaultTopLevel are the direct children kept by Serialize.
var DefaultTopLevel = []string{"p", "picture", "img"}

// Sanitizer applies a rule table to an article body. It holds no per-call
// state and may be shared between goroutines.
type Sanitizer struct {
	rules    Rules
	remove   string
	topLevel []string
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithRemoved removes elements matching any of the selectors after
// structural rewrites, e.g. image frames and ad boxes.
func WithRemoved(selectors ...string) Option {
	return func(s *Sanitizer) {
		s.remove = strings.Join(selectors, ", ")
	}
}

// WithTopLevel sets the tags Serialize keeps among the body's direct children.
func WithTopLevel(tags ...string) Option {
	return func(s *Sanitizer) {
		s.topLevel = tags
	}
}

// New creates a sanitizer for a rule table.
func New(rules Rules, opts ...Option) *Sanitizer {
	s := &Sanitizer{rules: rules, topLevel: DefaultTopLevel}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sanitize rewrites the subtrees of root in place. Relative URLs are
// resolved against origin. It never fails; unknown markup is dropped.
func (s *Sanitizer) Sanitize(root *goquery.Selection, origin string) {
	if root == nil || root.Length() == 0 {
		return
	}
	if s.rules["figure"].Rewrite == Hoist {
		root.Find("figure").Each(func(_ int, fig *goquery.Selection) {
			hoistFigure(fig.Get(0))
		})
	}
	if s.remove != "" {
		root.Find(s.remove).Remove()
	}
	for _, n := range root.Nodes {
		s.cleanChildren(n, origin)
	}
}

// Serialize concatenates the rendered direct children of root whose tag is
// in the top-level set, in document order.
func (s *Sanitizer) Serialize(root *goquery.Selection) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	for _, n := range root.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && slices.Contains(s.topLevel, c.Data) {
				_ = html.Render(&b, c) // writes to a strings.Builder never fail
			}
		}
	}
	return b.String()
}

func (s *Sanitizer) cleanChildren(parent *html.Node, origin string) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		switch c.Type {
		case html.TextNode:
		case html.ElementNode:
			s.cleanElement(c, origin)
		default:
			parent.RemoveChild(c)
		}
		c = next
	}
}

func (s *Sanitizer) cleanElement(n *html.Node, origin string) {
	parent := n.Parent
	rule, ok := s.rules[n.Data]
	if !ok {
		parent.RemoveChild(n)
		return
	}

	switch rule.Rewrite {
	case Unwrap:
		s.cleanChildren(n, origin)
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
			parent.InsertBefore(c, n)
		}
		parent.RemoveChild(n)
	case Caption:
		s.cleanChildren(n, origin)
		parent.InsertBefore(captionParagraph(n), n)
		parent.RemoveChild(n)
	case Hoist:
		// figures left here had no media to hoist
		parent.RemoveChild(n)
	case Space:
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: " "}, n)
		parent.RemoveChild(n)
	default:
		rule.apply(n, origin)
		s.cleanChildren(n, origin)
	}
}

func (r Rule) apply(n *html.Node, origin string) {
	for target, lazy := range r.Overrides {
		for _, name := range lazy {
			if v := attr(n, name); v != "" {
				setAttr(n, target, v)
				break
			}
		}
	}

	kept := make([]html.Attribute, 0, len(r.Allow))
	for _, a := range n.Attr {
		if a.Namespace != "" || !slices.Contains(r.Allow, a.Key) {
			continue
		}
		switch {
		case slices.Contains(r.Resolve, a.Key):
			a.Val = urls.Resolve(a.Val, origin)
		case slices.Contains(r.Srcset, a.Key):
			a.Val = urls.ResolveSrcset(a.Val, origin)
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// hoistFigure moves the figure's picture (or img) and figcaption out of it
// and drops the figure.
func hoistFigure(fig *html.Node) {
	if fig.Parent == nil {
		return
	}
	sel := goquery.NewDocumentFromNode(fig).Selection
	media := sel.Find("picture").First()
	if media.Length() == 0 {
		media = sel.Find("img").First()
	}
	if media.Length() == 0 {
		return
	}

	parent := fig.Parent
	m := media.Get(0)
	m.Parent.RemoveChild(m)
	parent.InsertBefore(m, fig.NextSibling)
	// the caption rule turns the moved figcaption into a paragraph
	if caption := sel.Find("figcaption").First(); caption.Length() > 0 {
		c := caption.Get(0)
		c.Parent.RemoveChild(c)
		parent.InsertBefore(c, m.NextSibling)
	}
	parent.RemoveChild(fig)
}

func captionParagraph(figcaption *html.Node) *html.Node {
	p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
	if attr(figcaption, "itemprop") == "description" {
		p.Attr = append(p.Attr, html.Attribute{Key: "itemprop", Val: "description"})
	}
	p.Attr = append(p.Attr, html.Attribute{Key: "style", Val: CaptionStyle})
	text := strings.TrimSpace(goquery.NewDocumentFromNode(figcaption).Text())
	p.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return p
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
