package replicate

import (
	"context"
	"iter"
)

// PageFetcher loads the page behind a Next link.
type PageFetcher[T any] func(ctx context.Context, next string) (*Page[T], error)

// Paginate yields the items of first and of every page after it, fetching
// each Next link only when the previous page has been consumed.
//
// Ranging over the result twice starts again from first. A fetch error is
// yielded once with the zero T and ends the sequence; items already yielded
// are unaffected. Breaking out of the loop stops further fetches.
func Paginate[T any](ctx context.Context, first *Page[T], fetch PageFetcher[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		page := first
		for page != nil {
			for _, item := range page.Results {
				if !yield(item, nil) {
					return
				}
			}
			if !page.HasNext() {
				return
			}

			next, err := fetch(ctx, page.Next)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			page = next
		}
	}
}

// paginateFrom is Paginate with the first page loaded lazily.
func paginateFrom[T any](ctx context.Context, list func(context.Context) (*Page[T], error), fetch PageFetcher[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		first, err := list(ctx)
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}
		for item, err := range Paginate(ctx, first, fetch) {
			if !yield(item, err) {
				return
			}
		}
	}
}

// Collect drains seq into a slice, stopping at the first error. The items
// read before the error are returned with it.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
