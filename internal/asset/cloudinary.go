// Package asset talks to the remote media store (Cloudinary) that hosts the
// files attached to memories.
//
// The only operation this backend ever performs against the store is destroy:
// when a file reference is removed from a memory (or a whole memory is
// deleted), the underlying asset must be removed too. Uploads happen directly
// from the browser, so the backend never sees the asset content — only its
// delivery URL, from which everything else (public id, resource type) has to
// be reconstructed.
//
// DELETION IS BEST-EFFORT BY CONTRACT:
// An asset-store failure must never block or fail the record mutation that
// triggered it. Delete therefore swallows transport errors: every failure
// becomes a log line plus an error value the caller may collect, and nothing
// here ever panics or returns a raw transport error.
package asset

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Deleter is the interface services depend on. A nil-error return means the
// store explicitly confirmed the deletion; any other outcome (asset already
// absent, signature rejected, transport failure) is a non-nil error that
// callers treat as a best-effort miss, not a reason to abort.
type Deleter interface {
	Delete(ctx context.Context, fileURL string) error
}

// Config holds the Cloudinary account credentials and client knobs.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string

	// BaseURL overrides the API host. Tests point it at an httptest server.
	// Empty means the real Cloudinary API.
	BaseURL string

	// Timeout bounds each destroy request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout is the per-request bound on destroy calls. A hung asset
// store must not hold a diary mutation hostage; on expiry the attempt is
// counted as failed and abandoned in place.
const DefaultTimeout = 10 * time.Second

const defaultBaseURL = "https://api.cloudinary.com"

// Client issues signed destroy requests against the Cloudinary admin API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time // injectable for deterministic signature tests
}

var _ Deleter = (*Client)(nil)

// New creates a Client. The logger must not be nil — every failed attempt is
// diagnosed through it rather than through the error return.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
	}
}

// extractPublicID derives the asset's public id candidates from its delivery
// URL.
//
// A delivery URL looks like:
//
//	https://res.cloudinary.com/<cloud>/auto/upload/v1234567890/diary/photo.jpg
//
// The public id is everything after the "upload" path segment, minus an
// optional version segment ("v" followed by digits only). Because the store
// sometimes registers raw files under a public id that keeps the extension
// and sometimes under one that drops it, both candidates are returned; when
// the final component has no extension the two are identical.
//
// Fails when the URL has no "upload" segment or nothing follows it.
func extractPublicID(rawURL string) (withExt, withoutExt string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("asset: parsing url %q: %w", rawURL, err)
	}

	parts := strings.Split(u.Path, "/")
	uploadIdx := -1
	for i, p := range parts {
		if p == "upload" {
			uploadIdx = i
			break
		}
	}
	if uploadIdx < 0 {
		return "", "", fmt.Errorf("asset: no upload segment in %q", rawURL)
	}

	start := uploadIdx + 1
	if start < len(parts) && isVersionSegment(parts[start]) {
		start++
	}

	rest := parts[start:]
	withExt = strings.Join(rest, "/")
	if withExt == "" {
		return "", "", fmt.Errorf("asset: no public id after upload segment in %q", rawURL)
	}

	withoutExt = withExt
	last := rest[len(rest)-1]
	if dot := strings.LastIndex(last, "."); dot >= 0 {
		trimmed := append(append([]string{}, rest[:len(rest)-1]...), last[:dot])
		withoutExt = strings.Join(trimmed, "/")
	}

	return withExt, withoutExt, nil
}

// isVersionSegment reports whether s is a version path segment: a literal
// "v" followed by one or more digits, nothing else.
func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resourceTypeOf classifies the asset from its delivery URL. An explicit
// segment (image/video/raw) is trusted; "auto" means the real type is unknown
// and must be resolved by trial; anything else defaults to image.
func resourceTypeOf(rawURL string) string {
	switch {
	case strings.Contains(rawURL, "/raw/upload/"):
		return "raw"
	case strings.Contains(rawURL, "/video/upload/"):
		return "video"
	case strings.Contains(rawURL, "/image/upload/"):
		return "image"
	case strings.Contains(rawURL, "/auto/upload/"):
		return "auto"
	default:
		return "image"
	}
}

// Delete removes the asset behind fileURL from the remote store.
//
// For an "auto" URL the real resource type is unknown, so deletion is
// resolved by trial: raw with extension, raw without, image with, image
// without — stopping at the first attempt the store confirms. Raw comes
// before image on the assumption that ambiguous uploads are usually
// documents; when the asset actually is an image this produces a couple of
// "not found" log lines before the image attempt lands. For an explicit
// resource type only the with/without-extension pair is tried.
//
// Returns nil iff the store explicitly reported one attempt as applied.
// "Not found" responses mean the asset is already absent — the attempt does
// not count as a success, and the trial sequence continues.
func (c *Client) Delete(ctx context.Context, fileURL string) error {
	withExt, withoutExt, err := extractPublicID(fileURL)
	if err != nil {
		c.logger.Warn("asset delete skipped: cannot derive public id",
			slog.String("url", fileURL),
			slog.String("error", err.Error()),
		)
		return err
	}

	resourceType := resourceTypeOf(fileURL)

	type attempt struct {
		resourceType string
		publicID     string
	}
	var attempts []attempt
	if resourceType == "auto" {
		attempts = append(attempts, attempt{"raw", withExt})
		if withoutExt != withExt {
			attempts = append(attempts, attempt{"raw", withoutExt})
		}
		attempts = append(attempts, attempt{"image", withExt})
		if withoutExt != withExt {
			attempts = append(attempts, attempt{"image", withoutExt})
		}
	} else {
		attempts = append(attempts, attempt{resourceType, withExt})
		if withoutExt != withExt {
			attempts = append(attempts, attempt{resourceType, withoutExt})
		}
	}

	for _, a := range attempts {
		if c.tryDestroy(ctx, a.resourceType, a.publicID) {
			return nil
		}
	}

	return fmt.Errorf("asset: destroy failed for %s", fileURL)
}

// destroyResponse is the slice of the store's reply we care about.
// "ok" means applied; "not found" means already absent.
type destroyResponse struct {
	Result string `json:"result"`
}

// tryDestroy issues one signed destroy call. Returns true only when the
// store explicitly confirms the deletion. Every non-success path is logged
// here so the trial loop in Delete stays silent.
func (c *Client) tryDestroy(ctx context.Context, resourceType, publicID string) bool {
	timestamp := c.now().Unix()

	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", fmt.Sprintf("%d", timestamp))
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", c.sign(map[string]string{
		"public_id": publicID,
		"timestamp": fmt.Sprintf("%d", timestamp),
	}))
	// The resource type routes the request but is never part of the signed
	// payload. It only travels as a form field for non-image types.
	if resourceType != "image" {
		form.Set("resource_type", resourceType)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/%s/destroy", c.cfg.BaseURL, c.cfg.CloudName, resourceType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		c.logger.Warn("asset destroy: building request failed",
			slog.String("publicID", publicID),
			slog.String("error", err.Error()),
		)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("asset destroy: request failed",
			slog.String("resourceType", resourceType),
			slog.String("publicID", publicID),
			slog.String("error", err.Error()),
		)
		return false
	}
	defer resp.Body.Close()

	var result destroyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn("asset destroy: unreadable response",
			slog.String("resourceType", resourceType),
			slog.String("publicID", publicID),
			slog.String("error", err.Error()),
		)
		return false
	}

	switch result.Result {
	case "ok":
		c.logger.Info("asset destroyed",
			slog.String("resourceType", resourceType),
			slog.String("publicID", publicID),
		)
		return true
	case "not found":
		// Already absent on the remote side. Not a success — another
		// resource type/extension combination may still hold the asset.
		c.logger.Info("asset not found on store",
			slog.String("resourceType", resourceType),
			slog.String("publicID", publicID),
		)
		return false
	default:
		c.logger.Warn("asset destroy rejected",
			slog.String("resourceType", resourceType),
			slog.String("publicID", publicID),
			slog.String("result", result.Result),
		)
		return false
	}
}

// sign computes the request signature: parameters sorted by name, joined as
// key=value pairs with "&", the API secret appended, SHA-1 hashed, hex
// encoded. Exactly the fields passed in are signed — in particular the
// resource type must NOT be included even though it is sent on the request.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	payload := strings.Join(pairs, "&") + c.cfg.APISecret

	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
