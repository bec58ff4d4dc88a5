package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 20
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Page describes the pagination metadata returned alongside list results.
type Page struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Normalize clamps the params to sane values.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the row offset for the normalized params.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// BuildPage assembles the metadata for a list response.
func BuildPage(params Params, total int64) Page {
	n := params.Normalize()
	totalPages := int((total + int64(n.Limit) - 1) / int64(n.Limit))
	if totalPages < 1 {
		totalPages = 1
	}
	return Page{
		Page:       n.Page,
		Limit:      n.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
