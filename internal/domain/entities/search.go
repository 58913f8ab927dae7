package entities

// Search request bounds.
const (
	MinQueryLength = 1
	MaxQueryLength = 100
	MaxTypeLength  = 20
	MinTop         = 1
	MaxTop         = 50
	DefaultTop     = 10
)

// SearchSource names the retrieval strategy that produced a response.
type SearchSource string

// Retrieval strategies.
const (
	SourceRanked SearchSource = "ranked"
	SourcePrefix SearchSource = "prefix"
)

// SearchQuery is a validated search request.
type SearchQuery struct {
	Query string  `json:"query"`
	Type  *string `json:"type"`
	Top   int     `json:"top"`
}

// SearchResult is one entity returned by a search. Score and RankScore are
// only set by the ranked strategy.
type SearchResult struct {
	ID        int64    `json:"id"`
	Type      string   `json:"type"`
	Name      string   `json:"name"`
	AltNames  *string  `json:"alt_names"`
	Country   *string  `json:"country"`
	Score     *float64 `json:"score"`
	RankScore *float64 `json:"rank_score"`
}

// SearchResponse is the response of either strategy.
type SearchResponse struct {
	Query      string         `json:"query"`
	Type       *string        `json:"type"`
	Top        int            `json:"top"`
	Source     SearchSource   `json:"source"`
	DurationMS float64        `json:"duration_ms"`
	Results    []SearchResult `json:"results"`
}
