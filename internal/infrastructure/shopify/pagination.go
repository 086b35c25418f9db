package shopify

import (
	"net/url"
	"strings"
)

// ParseNextPageInfo extracts the page_info cursor of the rel="next" entry of a Link header.
//
//	<https://shop.myshopify.com/admin/api/2024-01/orders.json?limit=250&page_info=abc>; rel="next"
//
// An empty result means there is no next page.
func ParseNextPageInfo(linkHeader string) string {
	if linkHeader == "" {
		return ""
	}
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end <= start {
			continue
		}
		target, err := url.Parse(strings.TrimSpace(part[start+1 : end]))
		if err != nil {
			continue
		}
		if pageInfo := target.Query().Get("page_info"); pageInfo != "" {
			return pageInfo
		}
	}
	return ""
}
