package board

import (
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/tabsammlung/internal/types"
)

// NormalizeURL drops the fragment, sorts query values and trims a
// trailing slash so equivalent links compare equal.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	params := u.Query()
	for k := range params {
		sort.Strings(params[k])
	}
	u.RawQuery = params.Encode()
	result := u.String()
	if strings.HasSuffix(result, "/") && result != u.Scheme+"://"+u.Host+"/" {
		result = strings.TrimRight(result, "/")
	}
	return result
}

// Duplicates groups items that point at the same normalised URL, across
// all collections. Groups are ordered by the URL; members keep board order.
func (b *Board) Duplicates() [][]types.Item {
	byURL := make(map[string][]types.Item)
	for _, it := range b.items {
		key := NormalizeURL(it.URL)
		byURL[key] = append(byURL[key], it)
	}
	keys := make([]string, 0, len(byURL))
	for k, group := range byURL {
		if len(group) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([][]types.Item, 0, len(keys))
	for _, k := range keys {
		out = append(out, byURL[k])
	}
	return out
}
