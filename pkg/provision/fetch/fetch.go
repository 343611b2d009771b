// Package fetch downloads remote artifacts, such as default reference archives, to local paths.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrFetch             = errors.New("unable to fetch")
)

// Fetcher downloads rawURL into dst, overwriting it.
type Fetcher interface {
	Download(ctx context.Context, rawURL, dst string) error
}

// HTTPFetcher downloads http and https URLs.
type HTTPFetcher struct {
	Client *http.Client
}

// Download implements Fetcher.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL, dst string) error {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrapf(err, "unable to create request for %s", rawURL)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(ErrFetch, "%s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrFetch, "%s: %s", rawURL, resp.Status)
	}

	return writeFile(dst, resp.Body)
}

// FileFetcher copies file URLs and plain paths, typically local mirrors.
type FileFetcher struct{}

// Download implements Fetcher.
func (FileFetcher) Download(ctx context.Context, rawURL, dst string) error {
	src := strings.TrimPrefix(rawURL, "file://")

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(ErrFetch, "%s: %v", rawURL, err)
	}
	defer in.Close()

	return writeFile(dst, in)
}

func writeFile(dst string, r io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", dst)
	}

	_, err = io.Copy(out, r)
	if err != nil {
		out.Close()

		return errors.Wrapf(ErrFetch, "unable to write %s: %v", dst, err)
	}

	return errors.Wrapf(out.Close(), "unable to close %s", dst)
}

// Mux routes a download to a Fetcher according to the URL scheme.
type Mux struct {
	fetchers map[string]Fetcher
}

// NewMux returns a Mux serving http, https, s3 and file URLs.
func NewMux() *Mux {
	httpFetcher := &HTTPFetcher{}

	return &Mux{
		fetchers: map[string]Fetcher{
			"http":  httpFetcher,
			"https": httpFetcher,
			"s3":    &S3Fetcher{},
			"file":  FileFetcher{},
			"":      FileFetcher{},
		},
	}
}

// Handle registers fetcher for scheme, replacing any previous one.
func (m *Mux) Handle(scheme string, fetcher Fetcher) {
	m.fetchers[scheme] = fetcher
}

// Download implements Fetcher.
func (m *Mux) Download(ctx context.Context, rawURL, dst string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(err, "unable to parse %s", rawURL)
	}

	fetcher, ok := m.fetchers[u.Scheme]
	if !ok {
		return errors.Wrapf(ErrUnsupportedScheme, "%s", rawURL)
	}

	return fetcher.Download(ctx, rawURL, dst)
}

var (
	_ Fetcher = (*HTTPFetcher)(nil)
	_ Fetcher = FileFetcher{}
	_ Fetcher = (*Mux)(nil)
)
