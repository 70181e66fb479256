package document

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// maxWatchPageBytes bounds the watch-page read; caption metadata sits
// well within the first few MB.
const maxWatchPageBytes = 8 << 20

var captionTrackRe = regexp.MustCompile(`"captionTracks":\[\{"baseUrl":"([^"]+)"`)

// loadVideo retrieves the transcript of a YouTube video.
// The watch page embeds caption track URLs; the first track is fetched
// as timedtext XML and flattened to plain text.
func (l *Loader) loadVideo(ctx context.Context, rawURL string) (string, error) {
	videoID, err := extractVideoID(rawURL)
	if err != nil {
		return "", err
	}

	watchURL := "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
	page, err := l.get(ctx, watchURL, maxWatchPageBytes)
	if err != nil {
		return "", err
	}

	m := captionTrackRe.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("%w: no transcript available for video %q", ErrLoad, videoID)
	}
	trackURL := decodeJSONEscapes(string(m[1]))

	raw, err := l.get(ctx, trackURL, maxWatchPageBytes)
	if err != nil {
		return "", err
	}

	text, err := flattenTimedText(raw)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: transcript for video %q is empty", ErrLoad, videoID)
	}
	return text, nil
}

// get performs a bounded GET through the loader's HTTP client.
func (l *Loader) get(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrLoad, err)
	}
	req.Header.Set("User-Agent", siteUserAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %q: %v", ErrLoad, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetching %q: status %d", ErrLoad, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", ErrLoad, rawURL, err)
	}
	return body, nil
}

// extractVideoID pulls the 11-character video ID out of watch, share,
// shorts, and embed URL shapes.
func extractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid video URL %q", ErrLoad, rawURL)
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				if id, _, _ := strings.Cut(rest, "/"); id != "" {
					return id, nil
				}
			}
		}
	}
	return "", fmt.Errorf("%w: cannot find video ID in %q", ErrLoad, rawURL)
}

// decodeJSONEscapes undoes the escaping the watch page applies to
// embedded caption URLs.
func decodeJSONEscapes(s string) string {
	s = strings.ReplaceAll(s, `\u0026`, "&")
	s = strings.ReplaceAll(s, `\/`, "/")
	return s
}

// timedText mirrors YouTube's timedtext XML format.
type timedText struct {
	XMLName  xml.Name `xml:"transcript"`
	Segments []struct {
		Content string `xml:",chardata"`
	} `xml:"text"`
}

// flattenTimedText joins caption segments into one plain-text
// transcript, unescaping the HTML entities captions carry.
func flattenTimedText(raw []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(raw, &tt); err != nil {
		return "", fmt.Errorf("%w: parsing transcript: %v", ErrLoad, err)
	}

	parts := make([]string, 0, len(tt.Segments))
	for _, seg := range tt.Segments {
		if s := strings.TrimSpace(html.UnescapeString(seg.Content)); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}
