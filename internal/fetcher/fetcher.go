// Package fetcher opens tabular data sources from local files, HTTP(S) and
// FTP, and parses CSV and XLSX rows.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Opener resolves a data location to a byte stream. Locations are local
// paths, file:// URLs, http(s):// URLs or ftp:// URLs.
type Opener struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewOpener creates an Opener with HTTP and FTP fetchers.
func NewOpener(httpOpts HTTPOptions, ftpOpts FTPOptions) *Opener {
	return &Opener{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// Open returns a reader over the location's contents. The caller must close it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	scheme, target, err := splitLocation(location)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "":
		f, err := os.Open(target)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", target)
		}
		return f, nil
	case "http", "https":
		if o.HTTP == nil {
			return nil, eris.Errorf("open %s: no http fetcher configured", location)
		}
		return o.HTTP.Download(ctx, target)
	case "ftp":
		if o.FTP == nil {
			return nil, eris.Errorf("open %s: no ftp fetcher configured", location)
		}
		return o.FTP.Download(ctx, target)
	default:
		return nil, eris.Errorf("open %s: unsupported scheme %q", location, scheme)
	}
}

// LocalPath returns a filesystem path holding the location's contents.
// Remote locations are downloaded into a temporary file which cleanup
// removes; cleanup is always non-nil.
func (o *Opener) LocalPath(ctx context.Context, location string) (string, func(), error) {
	noop := func() {}

	scheme, target, err := splitLocation(location)
	if err != nil {
		return "", noop, err
	}
	if scheme == "" {
		return target, noop, nil
	}

	var f Fetcher
	switch scheme {
	case "http", "https":
		f = o.HTTP
	case "ftp":
		f = o.FTP
	default:
		return "", noop, eris.Errorf("open %s: unsupported scheme %q", location, scheme)
	}
	if f == nil {
		return "", noop, eris.Errorf("open %s: no %s fetcher configured", location, scheme)
	}

	dir, err := os.MkdirTemp("", "boxoffice-*")
	if err != nil {
		return "", noop, eris.Wrap(err, "create temp dir")
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			zap.L().Warn("fetcher: remove temp dir", zap.String("dir", dir), zap.Error(err))
		}
	}

	path := filepath.Join(dir, "download"+Ext(location))
	n, err := f.DownloadToFile(ctx, target, path)
	if err != nil {
		cleanup()
		return "", noop, err
	}

	zap.L().Debug("fetcher: downloaded",
		zap.String("location", location),
		zap.Int64("bytes", n),
	)
	return path, cleanup, nil
}

// Ext returns the lower-cased file extension of a path or URL, ignoring any
// query string.
func Ext(location string) string {
	if u, err := url.Parse(location); err == nil && len(u.Scheme) > 1 {
		return strings.ToLower(filepath.Ext(u.Path))
	}
	return strings.ToLower(filepath.Ext(location))
}

// splitLocation returns the scheme ("" for local files) and the target to
// hand to the matching fetcher.
func splitLocation(location string) (string, string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", "", eris.New("open: empty location")
	}

	u, err := url.Parse(location)
	// Single-letter schemes are Windows drive letters.
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return "", location, nil
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "file" {
		return "", u.Path, nil
	}
	return scheme, location, nil
}
