// Package analyzer checks saved items for links that no longer resolve.
package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/types"
)

// DeadLink is an item whose URL failed the check.
type DeadLink struct {
	Item   types.Item
	Reason string
}

var skipPrefixes = []string{"about:", "moz-extension:", "chrome-extension:", "file:", "chrome:", "resource:", "data:", "javascript:"}

func shouldSkip(url string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// CheckDeadLinks sends a HEAD request for every item, at most ten at a
// time, and returns the dead ones in input order. 404 and 410 count as
// dead; so do unreachable hosts. Other statuses, including 405, do not.
func CheckDeadLinks(ctx context.Context, items []types.Item) []DeadLink {
	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	reasons := make([]string, len(items))
	sem := make(chan struct{}, 10)
	var wg sync.WaitGroup

	for i, it := range items {
		if shouldSkip(it.URL) {
			continue
		}

		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
			if err != nil {
				reasons[idx] = "invalid URL"
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				if ctx.Err() == nil {
					reasons[idx] = "unreachable"
				}
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
				reasons[idx] = fmt.Sprintf("%d", resp.StatusCode)
			}
		}(i, it.URL)
	}

	wg.Wait()

	var dead []DeadLink
	for i, r := range reasons {
		if r != "" {
			dead = append(dead, DeadLink{Item: items[i], Reason: r})
		}
	}
	applog.Info("analyzer.deadlinks", "checked", len(items), "dead", len(dead))
	return dead
}
