package table

// FirstPage is the 1-based page every filter change resets to.
const FirstPage = 1

// DefaultPageSize is used when the caller supplies no page size.
const DefaultPageSize = 10

// SortOrder is the normalized sort direction sent to the data source.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// sortOrders maps renderer sort directions to SortOrder.
var sortOrders = map[string]SortOrder{
	"ascend":  SortAsc,
	"descend": SortDesc,
}

// ParseSortOrder accepts both renderer ("ascend") and normalized ("asc") spellings.
func ParseSortOrder(s string) (SortOrder, bool) {
	if o, ok := sortOrders[s]; ok {
		return o, true
	}
	switch SortOrder(s) {
	case SortAsc, SortDesc:
		return SortOrder(s), true
	}
	return "", false
}

// Pagination is the controller's pagination state.
// Current is 1-based; emitted requests use 0-based pages.
type Pagination struct {
	PageSize int `json:"pageSize"`
	Current  int `json:"current"`
	Total    int `json:"total,omitempty"`
}

// Sorter describes the sort requested by the renderer.
type Sorter struct {
	Field string
	Order string // "ascend" or "descend"
}

// ChangeRequest is the single normalized object sent to the caller
// whenever filter, page or sort changes.
type ChangeRequest struct {
	Search map[string]any `json:"search"`
	Page   int            `json:"page"`
	Size   int            `json:"size"`
	Sort   string         `json:"sort,omitempty"`
	Order  SortOrder      `json:"order,omitempty"`
}

// PageParams is the page/size pair carried in FilterMeta.
type PageParams struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// FilterMeta describes the filter edit that produced a ChangeRequest.
type FilterMeta struct {
	Field      string     `json:"field"`
	Value      any        `json:"value"`
	Pagination PageParams `json:"pagination"`
}

// FilterFunc receives filter-triggered change requests.
type FilterFunc func(req ChangeRequest, meta FilterMeta)

// ChangeFunc receives every change request.
type ChangeFunc func(req ChangeRequest)

// isActive reports whether v counts as a set filter value.
// nil and "" are the absent sentinel; false and 0 are real filters.
func isActive(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok && s == "" {
		return false
	}
	return true
}

func copySearch(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
