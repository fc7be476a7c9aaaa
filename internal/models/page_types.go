package models

// Page is the limit/offset window requested by a listing.
type Page struct {
	Limit  int
	Offset int
}

// PageInfo describes the window returned alongside listing data.
type PageInfo struct {
	Limit            int `json:"limit"`
	Offset           int `json:"offset"`
	TotalItems       int `json:"total_items"`
	CurrentPageCount int `json:"current_page_count"`
	TotalPages       int `json:"total_pages"`
}

// NewPageInfo computes the page count for total items under p.
func NewPageInfo(p Page, total, current int) PageInfo {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return PageInfo{
		Limit:            p.Limit,
		Offset:           p.Offset,
		TotalItems:       total,
		CurrentPageCount: current,
		TotalPages:       pages,
	}
}

// Sort is a whitelisted column plus direction.
type Sort struct {
	Column string
	Desc   bool
}
