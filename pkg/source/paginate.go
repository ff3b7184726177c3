package source

import (
	"context"
	"fmt"
)

// Page is one page of a paginated listing. Next is the continuation token;
// an empty Next ends the listing.
type Page[T any] struct {
	Items []T
	Next  string
}

// Paginate calls fetch starting at token start and keeps following Next until
// a page comes back without one. Items accumulate across pages. A fetch error
// stops the loop and is returned together with the items gathered so far.
func Paginate[T any](ctx context.Context, start string, fetch func(ctx context.Context, token string) (Page[T], error)) ([]T, error) {
	var (
		items []T
		token = start
		seen  = make(map[string]struct{})
	)
	for {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		seen[token] = struct{}{}
		page, err := fetch(ctx, token)
		if err != nil {
			return items, err
		}
		items = append(items, page.Items...)
		if page.Next == "" {
			return items, nil
		}
		if _, dup := seen[page.Next]; dup {
			return items, fmt.Errorf("paginate: continuation token %q repeated", page.Next)
		}
		token = page.Next
	}
}
