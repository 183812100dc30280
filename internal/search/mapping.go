package search

// indexBody is sent once when the index is created. name is analysed with
// edge n-grams at index time and plain folded tokens at query time.
var indexBody = map[string]any{
	"settings": map[string]any{
		"analysis": map[string]any{
			"filter": map[string]any{
				"folding": map[string]any{
					"type":              "asciifolding",
					"preserve_original": true,
				},
				"prefix_ngram": map[string]any{
					"type":     "edge_ngram",
					"min_gram": 2,
					"max_gram": 20,
				},
			},
			"analyzer": map[string]any{
				"name_index": map[string]any{
					"type":      "custom",
					"tokenizer": "standard",
					"filter":    []string{"lowercase", "folding", "prefix_ngram"},
				},
				"name_search": map[string]any{
					"type":      "custom",
					"tokenizer": "standard",
					"filter":    []string{"lowercase", "folding"},
				},
			},
		},
		"index": map[string]any{
			"max_ngram_diff": 18,
		},
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"id": map[string]any{"type": "keyword"},
			"name": map[string]any{
				"type":            "text",
				"analyzer":        "name_index",
				"search_analyzer": "name_search",
				"fields": map[string]any{
					"raw": map[string]any{"type": "keyword"},
				},
			},
			"description":   map[string]any{"type": "text", "analyzer": "name_search"},
			"category":      map[string]any{"type": "keyword"},
			"price":         map[string]any{"type": "double"},
			"originalPrice": map[string]any{"type": "double"},
			"rating":        map[string]any{"type": "float"},
			"sold":          map[string]any{"type": "integer"},
			"discount":      map[string]any{"type": "integer"},
			"views":         map[string]any{"type": "integer"},
			"image":         map[string]any{"type": "keyword", "index": false},
			"createdAt":     map[string]any{"type": "date"},
			"updatedAt":     map[string]any{"type": "date"},
		},
	},
}
