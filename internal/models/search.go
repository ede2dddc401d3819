package models

// SemanticSearchRequest is the request for semantic search
type SemanticSearchRequest struct {
	Query string `json:"query" query:"q"`
	K     int    `json:"k" query:"k"`
}

// SemanticSearchResponse is the response for semantic search
type SemanticSearchResponse struct {
	Query   string        `json:"query"`
	Results []VerseSource `json:"results"`
}
