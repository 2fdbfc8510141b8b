package engine

import "context"

// pageFetcher fetches one page starting at token, asking for at most remaining items.
type pageFetcher[T any] func(ctx context.Context, token string, remaining int) ([]T, string, error)

// collectPages follows page tokens until limit items are gathered, the
// upstream reports no further page, or a page comes back empty.
// The returned token points at the page after the last one consumed.
func collectPages[T any](ctx context.Context, startToken string, limit int, fetch pageFetcher[T]) ([]T, string, error) {
	out := make([]T, 0, min(limit, 100))
	token := startToken
	for len(out) < limit {
		items, next, err := fetch(ctx, token, limit-len(out))
		if err != nil {
			return nil, "", err
		}
		out = append(out, items...)
		token = next
		if next == "" || len(items) == 0 {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, token, nil
}
