package search

// BuildQuery translates params into an Elasticsearch search body.
func BuildQuery(p Params) map[string]any {
	var must []map[string]any
	var filter []map[string]any

	if p.Q != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     p.Q,
				"fields":    []string{"name^3", "description", "category"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
				"operator":  "and",
			},
		})
	}

	if p.Category != "" {
		filter = append(filter, map[string]any{
			"term": map[string]any{"category": p.Category},
		})
	}

	if p.MinPrice != nil || p.MaxPrice != nil {
		rng := map[string]any{}
		if p.MinPrice != nil {
			rng["gte"] = *p.MinPrice
		}
		if p.MaxPrice != nil {
			rng["lte"] = *p.MaxPrice
		}
		filter = append(filter, map[string]any{"range": map[string]any{"price": rng}})
	}

	if p.MinDiscount != nil {
		filter = append(filter, map[string]any{
			"range": map[string]any{"discount": map[string]any{"gte": *p.MinDiscount}},
		})
	}

	if p.MinViews != nil {
		filter = append(filter, map[string]any{
			"range": map[string]any{"views": map[string]any{"gte": *p.MinViews}},
		})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(must) > 0 || len(filter) > 0 {
		boolQuery := map[string]any{}
		if len(must) > 0 {
			boolQuery["must"] = must
		}
		if len(filter) > 0 {
			boolQuery["filter"] = filter
		}
		query = map[string]any{"bool": boolQuery}
	}

	return map[string]any{
		"from":  p.From(),
		"size":  p.Limit,
		"query": query,
		"sort":  sortClause(p.Sort),
	}
}

func sortClause(s Sort) []map[string]any {
	switch s {
	case SortPriceAsc:
		return []map[string]any{{"price": "asc"}}
	case SortPriceDesc:
		return []map[string]any{{"price": "desc"}}
	case SortNewest:
		return []map[string]any{{"createdAt": "desc"}}
	default:
		return []map[string]any{{"views": "desc"}, {"sold": "desc"}}
	}
}
