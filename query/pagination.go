package query

const (
	DefaultPage      = 1
	DefaultLimit     = 10
	DefaultSortBy    = "createdAt"
	DefaultSortOrder = "desc"
)

// PaginationOptions holds the caller supplied paging and ordering inputs.
// Nil and empty values mean the caller did not supply them.
type PaginationOptions struct {
	Page      *int
	Limit     *int
	SortBy    string
	SortOrder string
}

// Pagination is the concrete paging and ordering applied to a query.
type Pagination struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	Skip      int    `json:"skip"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

// Normalize resolves defaults for absent options. Page and limit are not
// range checked: a page of 0 yields a negative skip and is passed through.
func Normalize(opts PaginationOptions) Pagination {
	page := DefaultPage
	if opts.Page != nil {
		page = *opts.Page
	}
	limit := DefaultLimit
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = DefaultSortBy
	}
	sortOrder := DefaultSortOrder
	if opts.SortOrder == "asc" || opts.SortOrder == "desc" {
		sortOrder = opts.SortOrder
	}
	return Pagination{
		Page:      page,
		Limit:     limit,
		Skip:      (page - 1) * limit,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}
}

// Descending reports whether results are ordered newest/largest first.
func (p Pagination) Descending() bool {
	return p.SortOrder != "asc"
}

// TotalPages returns ceil(total/limit). A non-positive limit is treated as 1.
func (p Pagination) TotalPages(total int64) int64 {
	limit := int64(p.Limit)
	if limit <= 0 {
		limit = 1
	}
	return (total + limit - 1) / limit
}
