package sanitize

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const origin = "https://site.example"

func body(t *testing.T, fragment string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><div id="body">` + fragment + `</div></body></html>`))
	require.NoError(t, err)
	sel := doc.Find("#body")
	require.Equal(t, 1, sel.Length())
	return sel
}

func hoisting() *Sanitizer {
	return New(BaseRules().With("figure", Rule{Rewrite: Hoist}), WithRemoved(".fig-picture"))
}

func TestSanitize_FigurePictureHoist(t *testing.T) {
	// Input: figure wrapping a picture and a caption, followed by a paragraph
	// Expected Output: picture, caption paragraph, body paragraph, no figure
	root := body(t, `<figure><picture><img src="/i.jpg"></picture><figcaption>Caption</figcaption></figure><p>Body text.</p>`)

	s := hoisting()
	s.Sanitize(root, origin)
	got := s.Serialize(root)

	want := `<picture><img src="https://site.example/i.jpg"/></picture>` +
		`<p style="text-align:center; font-style:italic;">Caption</p>` +
		`<p>Body text.</p>`
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "figure")
}

func TestSanitize_HoistFigureInsideImageFrame(t *testing.T) {
	root := body(t, `<figure class="tplCaption" itemprop="associatedMedia image"><div class="fig-picture"><picture><source data-srcset="//cdn.example/a.jpg 1x, //cdn.example/a2.jpg 2x"><img data-src="//cdn.example/a.jpg" alt="A" class="lazy"></picture></div><figcaption itemprop="description"><p class="Image">Ảnh: <em>Reuters</em></p></figcaption></figure><div class="fig-picture">left over</div>`)

	s := hoisting()
	s.Sanitize(root, origin)
	got := s.Serialize(root)

	want := `<picture><source srcset="https://cdn.example/a.jpg 1x, https://cdn.example/a2.jpg 2x"/><img alt="A" src="https://cdn.example/a.jpg"/></picture>` +
		`<p itemprop="description" style="text-align:center; font-style:italic;">Ảnh: Reuters</p>`
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "fig-picture")
}

func TestSanitize_FigureWithImageOnly(t *testing.T) {
	root := body(t, `<figure><img src="/only.jpg"></figure><figure><figcaption>no media</figcaption></figure>`)

	s := hoisting()
	s.Sanitize(root, origin)

	assert.Equal(t, `<img src="https://site.example/only.jpg"/>`, s.Serialize(root))
}

func TestSanitize_FailClosed(t *testing.T) {
	root := body(t, `<p class="Normal" style="color:red" onclick="x()">Hello <a href="/x" target="_blank"><strong>world</strong></a><script>alert(1)</script></p>`+
		`<script>track()</script><style>p{}</style><iframe src="https://ads.example"></iframe>`+
		`<div class="box"><p>inside div</p></div><table><tr><td>cell</td></tr></table>`+
		`<p><x-ad data-slot="1">sponsored</x-ad>tail<!-- comment --><video src="/v.mp4"></video></p>`)

	s := New(BaseRules())
	s.Sanitize(root, origin)
	got := s.Serialize(root)

	assert.Equal(t, `<p>Hello world</p><p>tail</p>`, got)
	for _, marker := range []string{"<script", "<style", "<iframe", "<div", "<table", "<td", "<x-ad", "<video", "<a", "<strong", "<!--", "onclick", "class="} {
		assert.NotContains(t, got, marker)
	}
}

func TestSanitize_ImageAttributes(t *testing.T) {
	root := body(t, `<img class="lazy" data-src="//cdn.example/x.jpg" src="data:image/gif;base64,R0lGOD" alt="A" width="680" height="408" loading="lazy">`)

	s := New(BaseRules())
	s.Sanitize(root, origin)

	assert.Equal(t, `<img src="https://cdn.example/x.jpg" alt="A" width="680" height="408"/>`, s.Serialize(root))
}

func TestSanitize_DataOriginalOverride(t *testing.T) {
	img := BaseRules()["img"]
	img.Overrides = map[string][]string{"src": {"data-src", "data-original"}}
	s := New(BaseRules().With("img", img))

	root := body(t, `<img data-original="/lazy.jpg" src="/blank.gif">`)
	s.Sanitize(root, origin)

	assert.Equal(t, `<img src="https://site.example/lazy.jpg"/>`, s.Serialize(root))
}

func TestSanitize_KeptFigureCaption(t *testing.T) {
	s := New(BaseRules(), WithTopLevel("p", "figure"))
	root := body(t, `<figure class="image"><img src="/a.jpg" data-id="9"><figcaption class="c" itemprop="caption">Cap</figcaption></figure><p>Text</p>`)

	s.Sanitize(root, origin)

	want := `<figure><img src="https://site.example/a.jpg"/><p style="text-align:center; font-style:italic;">Cap</p></figure><p>Text</p>`
	assert.Equal(t, want, s.Serialize(root))
}

func TestSanitize_RemovedSelectors(t *testing.T) {
	s := New(BaseRules(), WithRemoved(".ads", ".box-banner"))
	root := body(t, `<p>one</p><p class="ads">buy</p><p class="box-banner">banner</p><p>two</p>`)

	s.Sanitize(root, origin)

	assert.Equal(t, `<p>one</p><p>two</p>`, s.Serialize(root))
}

func TestSanitize_TopLevelOnly(t *testing.T) {
	s := New(BaseRules())
	root := body(t, `loose text<picture><img src="/p.jpg"></picture><figure><img src="/f.jpg"></figure><p>p</p>`)

	s.Sanitize(root, origin)

	assert.Equal(t, `<picture><img src="https://site.example/p.jpg"/></picture><p>p</p>`, s.Serialize(root))
}

func TestSanitize_EmptySelection(t *testing.T) {
	s := New(BaseRules())
	assert.NotPanics(t, func() {
		s.Sanitize(nil, origin)
		s.Sanitize(&goquery.Selection{}, origin)
	})
	assert.Equal(t, "", s.Serialize(&goquery.Selection{}))
}

func TestSanitize_LineBreakKeepsWordsApart(t *testing.T) {
	root := body(t, `<p>a<br>b<strong>c</strong></p><p>x<br/><br>y</p>`)

	s := New(BaseRules())
	s.Sanitize(root, origin)

	assert.Equal(t, `<p>a bc</p><p>x  y</p>`, s.Serialize(root))
}
