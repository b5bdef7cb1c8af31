package spinebox

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// Fetcher resolves a reference payload locator to its bytes.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// FileFetcher reads locators as slash-separated paths inside FS. A nil FS
// reads from the working directory.
type FileFetcher struct {
	FS fs.FS
}

// Fetch implements Fetcher.
func (f FileFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}
	var (
		data []byte
		err  error
	)
	if f.FS == nil {
		data, err = os.ReadFile(strings.TrimPrefix(locator, "file://"))
	} else {
		data, err = fs.ReadFile(f.FS, strings.TrimPrefix(strings.TrimPrefix(locator, "file://"), "/"))
	}
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}
	return data, nil
}

// HTTPFetcher fetches http and https locators.
type HTTPFetcher struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Fetch implements Fetcher. Non-2xx responses are errors.
func (f HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Locator: locator, Err: fmt.Errorf("status %s", resp.Status)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}
	return data, nil
}

// MultiFetcher sends http(s) locators to HTTP and everything else to File.
type MultiFetcher struct {
	File Fetcher
	HTTP Fetcher
}

// NewMultiFetcher returns a MultiFetcher reading local paths from fsys (nil
// for the working directory) and URLs over http.DefaultClient.
func NewMultiFetcher(fsys fs.FS) *MultiFetcher {
	return &MultiFetcher{File: FileFetcher{FS: fsys}, HTTP: HTTPFetcher{}}
}

// Fetch implements Fetcher.
func (m *MultiFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return m.HTTP.Fetch(ctx, locator)
	}
	return m.File.Fetch(ctx, locator)
}
