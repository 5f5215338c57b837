package sanitize

// Rewrite is the structural transformation applied to an element.
type Rewrite int

const (
	// Keep filters the element's attributes and keeps its children.
	Keep Rewrite = iota
	// Unwrap drops the element and lifts its cleaned children into its place.
	Unwrap
	// Caption replaces the element with a centered italic paragraph holding its text.
	Caption
	// Hoist replaces a figure with its picture (or img) followed by its caption paragraph.
	Hoist
	// Space replaces the element with a single space, e.g. a line break.
	Space
)

// CaptionStyle is the inline style of a paragraph made from a figcaption.
const CaptionStyle = "text-align:center; font-style:italic;"

// Rule is the transformation applied to every element with one tag name.
type Rule struct {
	Allow     []string            // attributes that survive
	Resolve   []string            // URL-bearing attributes, made absolute
	Srcset    []string            // srcset-valued attributes, every candidate made absolute
	Overrides map[string][]string // target attribute -> lazy-loading attributes replacing it, in priority order
	Rewrite   Rewrite
}

// Rules maps lowercase tag names to their rule. Elements without a rule are
// removed together with their subtree.
type Rules map[string]Rule

// phrasing elements are unwrapped so their text survives inside paragraphs.
var phrasing = []string{
	"a", "abbr", "b", "cite", "em", "i", "mark", "small", "span", "strong", "sub", "sup", "time", "u",
}

// BaseRules returns a fresh copy of the table shared by all sources.
// Callers may adjust the copy before building a Sanitizer.
func BaseRules() Rules {
	rules := Rules{
		"p": {},
		"img": {
			Allow:     []string{"src", "alt", "width", "height"},
			Resolve:   []string{"src"},
			Overrides: map[string][]string{"src": {"data-src"}},
		},
		"source": {
			Allow:     []string{"srcset"},
			Srcset:    []string{"srcset"},
			Overrides: map[string][]string{"srcset": {"data-srcset"}},
		},
		"picture":    {},
		"figure":     {},
		"figcaption": {Rewrite: Caption},
		"br":         {Rewrite: Space},
	}
	for _, tag := range phrasing {
		rules[tag] = Rule{Rewrite: Unwrap}
	}
	return rules
}

// With returns a copy of rules with tag set to rule.
func (r Rules) With(tag string, rule Rule) Rules {
	out := make(Rules, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[tag] = rule
	return out
}
