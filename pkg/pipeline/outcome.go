package pipeline

import "news-crawler/pkg/domain"

// State is the lifecycle of one crawl request.
type State int32

const (
	Idle State = iota
	ListingInProgress
	DetailInProgress
	Done
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ListingInProgress:
		return "listing"
	case DetailInProgress:
		return "detail"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SkipReason says why a stub produced no article.
type SkipReason string

const (
	SkipFetchFailed  SkipReason = "fetch_failed"
	SkipBodyNotFound SkipReason = "body_not_found"
	SkipParseFailed  SkipReason = "parse_failed"
	SkipParsePanic   SkipReason = "parse_panic"
)

// Outcome is the result of one detail fetch: an article, or a skip reason.
type Outcome struct {
	Stub    domain.ArticleStub
	Article *domain.Article
	Reason  SkipReason
	Err     error
}

// Skipped reports whether the item produced no article.
func (o Outcome) Skipped() bool {
	return o.Article == nil
}

func (o Outcome) skip(reason SkipReason, err error) Outcome {
	o.Article = nil
	o.Reason = reason
	o.Err = err
	return o
}
