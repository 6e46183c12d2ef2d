package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// URIToPath converts a file:// URI into a filesystem path. The checker
// runs against files on disk, so anything without a file scheme is an
// error rather than a best-effort guess.
func URIToPath(uri DocumentURI) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", fmt.Errorf("parsing document uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	p := u.Path
	// windows URIs carry the drive letter after a leading slash
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}

// PathToURI converts a filesystem path into a file:// URI, making it
// absolute first so the client and server agree on identity.
func PathToURI(path string) DocumentURI {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return DocumentURI(u.String())
}
