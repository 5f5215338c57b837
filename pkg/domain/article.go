package domain

// Status is the publication state of an extracted article.
type Status string

// StatusPublished is the only status produced by the crawler.
const StatusPublished Status = "published"

// ArticleStub is a reference to an article discovered on a listing page,
// prior to fetching its detail page.
type ArticleStub struct {
	Title        string
	URL          string // absolute
	Description  string
	ThumbnailURL string
	CategoryID   int
}

// Article is the canonical record extracted from a detail page.
// Field order of the json tags is the snapshot format.
type Article struct {
	Title      string `json:"title" bson:"title"`
	Content    string `json:"content" bson:"content"` // sanitized HTML fragment
	Excerpt    string `json:"excerpt" bson:"excerpt"`
	Image      string `json:"image" bson:"image"`
	CategoryID int    `json:"category" bson:"category"`
	Status     Status `json:"status" bson:"status"`
}
