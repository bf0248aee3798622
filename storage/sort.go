package storage

// PostSortColumns maps the sortable post fields to their column names.
// Unknown fields fall back to created_at.
var PostSortColumns = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"title":      "title",
	"views":      "views",
	"status":     "status",
	"isFeatured": "is_featured",
}

// PostSortColumn resolves a sortBy field name.
func PostSortColumn(field string) string {
	if col, ok := PostSortColumns[field]; ok {
		return col
	}
	return "created_at"
}
