package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

// huggingFace lists via the tree API and downloads through resolve URLs.
type huggingFace struct {
	c     *Client
	base  string
	rev   string
	token string
}

type hfTreeEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	LFS  *struct {
		Size int64 `json:"size"`
	} `json:"lfs,omitempty"`
}

var linkNextRe = regexp.MustCompile(`<([^>]+)>;\s*rel="?next"?`)

func (h *huggingFace) list(ctx context.Context, id string) ([]File, error) {
	next := fmt.Sprintf("%s/api/models/%s/tree/%s?recursive=true", h.base, id, url.PathEscape(h.rev))
	var files []File
	for next != "" {
		resp, err := h.c.getJSON(ctx, h, next)
		if err != nil {
			return nil, err
		}
		var page []hfTreeEntry
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode tree listing: %w", err)
		}
		for _, e := range page {
			if e.Type != "file" {
				continue
			}
			size := e.Size
			if e.LFS != nil && e.LFS.Size > 0 {
				size = e.LFS.Size
			}
			files = append(files, File{Path: e.Path, Size: size})
		}
		next = ""
		if m := linkNextRe.FindStringSubmatch(resp.Header.Get("Link")); m != nil {
			next = m[1]
		}
	}
	return files, nil
}

func (h *huggingFace) fileURL(id, path string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s", h.base, id, url.PathEscape(h.rev), escapePath(path))
}

func (h *huggingFace) authorize(req *retryablehttp.Request) {
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

// modelScope lists via the repo files API and downloads through the repo endpoint.
type modelScope struct {
	c    *Client
	base string
	rev  string
}

type msFilesResponse struct {
	Code    int    `json:"Code"`
	Message string `json:"Message"`
	Data    struct {
		Files []struct {
			Path string `json:"Path"`
			Type string `json:"Type"`
			Size int64  `json:"Size"`
		} `json:"Files"`
	} `json:"Data"`
}

func (m *modelScope) list(ctx context.Context, id string) ([]File, error) {
	q := url.Values{}
	q.Set("Revision", m.rev)
	q.Set("Recursive", "true")
	resp, err := m.c.getJSON(ctx, m, fmt.Sprintf("%s/api/v1/models/%s/repo/files?%s", m.base, id, q.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var body msFilesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode file listing: %w", err)
	}
	if body.Code != 0 && body.Code != 200 {
		return nil, fmt.Errorf("modelscope error %d: %s", body.Code, body.Message)
	}
	files := make([]File, 0, len(body.Data.Files))
	for _, f := range body.Data.Files {
		if f.Type != "blob" {
			continue
		}
		files = append(files, File{Path: f.Path, Size: f.Size})
	}
	return files, nil
}

func (m *modelScope) fileURL(id, path string) string {
	q := url.Values{}
	q.Set("Revision", m.rev)
	q.Set("FilePath", path)
	return fmt.Sprintf("%s/api/v1/models/%s/repo?%s", m.base, id, q.Encode())
}

func (m *modelScope) authorize(*retryablehttp.Request) {}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
