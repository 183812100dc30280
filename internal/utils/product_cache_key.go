package utils

import "strconv"

const ProductsListVersionKey = "products:list:version"

// BuildProductsListCacheKey scopes a cached listing page to a catalog version,
// so bumping the version orphans every older page at once.
func BuildProductsListCacheKey(version int64, page, limit int) string {
	return "products:list:v" + strconv.FormatInt(version, 10) +
		":page=" + strconv.Itoa(page) +
		":limit=" + strconv.Itoa(limit)
}
