package replicate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/go-replicate/apierror"
)

// pagedFiles serves pages of 10 files. Page n links to page n+1 until pages.
func pagedFiles(t *testing.T, pages int, calls *atomic.Int32) (*Client, *httptest.Server) {
	var server *httptest.Server
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		n := 1
		if c := r.URL.Query().Get("cursor"); c != "" {
			var err error
			n, err = strconv.Atoi(c)
			require.NoError(t, err)
		}

		page := Page[File]{}
		for i := 0; i < 10; i++ {
			page.Results = append(page.Results, File{ID: fmt.Sprintf("f%02d", (n-1)*10+i)})
		}
		if n < pages {
			page.Next = fmt.Sprintf("%s/v1/files?cursor=%d", server.URL, n+1)
		}
		if n > 1 {
			page.Previous = fmt.Sprintf("%s/v1/files?cursor=%d", server.URL, n-1)
		}
		writeJSON(t, w, http.StatusOK, page)
	}))
	return client, server
}

func TestPaginateAllPages(t *testing.T) {
	var calls atomic.Int32
	client, _ := pagedFiles(t, 3, &calls)

	files, err := Collect(client.Files().All(context.Background()))
	require.NoError(t, err)
	require.Len(t, files, 30)
	for i, f := range files {
		assert.Equal(t, fmt.Sprintf("f%02d", i), f.ID)
	}
	assert.EqualValues(t, 3, calls.Load())
}

func TestPaginateLazy(t *testing.T) {
	var calls atomic.Int32
	client, _ := pagedFiles(t, 3, &calls)

	first, err := client.Files().List(context.Background())
	require.NoError(t, err)
	assert.True(t, first.HasNext())
	assert.EqualValues(t, 1, calls.Load())

	seen := 0
	for _, err := range Paginate(context.Background(), first, client.Files().page) {
		require.NoError(t, err)
		seen++
		if seen == 10 {
			break
		}
	}
	assert.EqualValues(t, 1, calls.Load(), "breaking at a page boundary must not fetch the next page")

	// Ranging again restarts from the first page.
	files, err := Collect(Paginate(context.Background(), first, client.Files().page))
	require.NoError(t, err)
	assert.Len(t, files, 30)
	assert.EqualValues(t, 3, calls.Load())
}

func TestPaginateFetchError(t *testing.T) {
	first := &Page[int]{Results: []int{1, 2}, Next: "page-2"}
	boom := errors.New("boom")

	fetches := 0
	fetch := func(_ context.Context, next string) (*Page[int], error) {
		fetches++
		assert.Equal(t, "page-2", next)
		return nil, boom
	}

	var (
		items []int
		errs  []error
	)
	for item, err := range Paginate(context.Background(), first, fetch) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, item)
	}

	assert.Equal(t, []int{1, 2}, items)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
	assert.Equal(t, 1, fetches)

	got, err := Collect(Paginate(context.Background(), first, fetch))
	assert.Equal(t, []int{1, 2}, got)
	assert.ErrorIs(t, err, boom)
}

func TestPaginateEmpty(t *testing.T) {
	fetch := func(context.Context, string) (*Page[string], error) {
		t.Fatal("no fetch expected")
		return nil, nil
	}

	got, err := Collect(Paginate(context.Background(), &Page[string]{}, fetch))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Collect(Paginate[string](context.Background(), nil, fetch))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPaginateForeignNextLink(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, Page[File]{
			Results: []File{{ID: "a"}},
			Next:    "https://elsewhere.example.com/v1/files?cursor=2",
		})
	}))

	files, err := Collect(client.Files().All(context.Background()))
	assert.Len(t, files, 1)
	assert.ErrorIs(t, err, ErrForeignLink)
}

func TestAllListError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := Collect(client.Predictions().All(context.Background()))
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindAuth))
}
