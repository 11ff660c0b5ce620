package asset

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// =========================================================================
// PUBLIC ID EXTRACTION
// =========================================================================

func TestExtractPublicID(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantWithExt string
		wantNoExt   string
		wantErr     bool
	}{
		{
			name:        "version segment is stripped",
			url:         "https://res.cloudinary.com/demo/auto/upload/v1234567890/diary/photo.jpg",
			wantWithExt: "diary/photo.jpg",
			wantNoExt:   "diary/photo",
		},
		{
			name:        "no version segment",
			url:         "https://res.cloudinary.com/demo/image/upload/diary/photo.jpg",
			wantWithExt: "diary/photo.jpg",
			wantNoExt:   "diary/photo",
		},
		{
			name:        "no extension gives identical candidates",
			url:         "https://res.cloudinary.com/demo/raw/upload/v99/diary/notes",
			wantWithExt: "diary/notes",
			wantNoExt:   "diary/notes",
		},
		{
			name:        "folder starting with v but not a version is kept",
			url:         "https://res.cloudinary.com/demo/image/upload/vacation/photo.png",
			wantWithExt: "vacation/photo.png",
			wantNoExt:   "vacation/photo",
		},
		{
			name:        "only one version segment is skipped",
			url:         "https://res.cloudinary.com/demo/image/upload/v123/v456/photo.png",
			wantWithExt: "v456/photo.png",
			wantNoExt:   "v456/photo",
		},
		{
			name:        "single component id",
			url:         "https://res.cloudinary.com/demo/raw/upload/report.docx",
			wantWithExt: "report.docx",
			wantNoExt:   "report",
		},
		{
			name:    "missing upload segment",
			url:     "https://example.com/some/other/path.jpg",
			wantErr: true,
		},
		{
			name:    "nothing after upload",
			url:     "https://res.cloudinary.com/demo/image/upload",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withExt, noExt, err := extractPublicID(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWithExt, withExt)
			assert.Equal(t, tt.wantNoExt, noExt)
		})
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1234567890"))
	assert.True(t, isVersionSegment("v1"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vacation"))
	assert.False(t, isVersionSegment("v12x"))
	assert.False(t, isVersionSegment("1234"))
}

// =========================================================================
// DESTROY TRIALS
// =========================================================================

// destroyCall records one request seen by the fake store.
type destroyCall struct {
	resourceType  string // from the URL path
	publicID      string
	signature     string
	timestamp     string
	formType      string // resource_type form field ("" when absent)
	hasSignedType bool   // true if the signature covers resource_type too
}

// newFakeStore spins up an httptest server that records destroy calls and
// answers each with the next scripted result ("ok", "not found", ...).
func newFakeStore(t *testing.T, secret string, results []string) (*httptest.Server, *[]destroyCall) {
	t.Helper()
	var calls []destroyCall

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		// Path: /v1_1/<cloud>/<resourceType>/destroy
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		require.Len(t, parts, 4)
		require.Equal(t, "destroy", parts[3])

		call := destroyCall{
			resourceType: parts[2],
			publicID:     r.PostFormValue("public_id"),
			signature:    r.PostFormValue("signature"),
			timestamp:    r.PostFormValue("timestamp"),
			formType:     r.PostFormValue("resource_type"),
		}

		// Would the signature match if resource_type had been signed?
		if call.formType != "" {
			signedWithType := shaHex(fmt.Sprintf("public_id=%s&resource_type=%s&timestamp=%s%s",
				call.publicID, call.formType, call.timestamp, secret))
			call.hasSignedType = signedWithType == call.signature
		}
		calls = append(calls, call)

		result := "not found"
		if len(calls) <= len(results) {
			result = results[len(calls)-1]
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"result":%q}`, result)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func shaHex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newTestClient(srv *httptest.Server, secret string) *Client {
	return New(Config{
		CloudName: "demo",
		APIKey:    "key123",
		APISecret: secret,
		BaseURL:   srv.URL,
	}, testLogger())
}

func TestDelete_AutoTriesRawThenImage(t *testing.T) {
	const secret = "shh"
	// All four attempts report "not found" except the last.
	srv, calls := newFakeStore(t, secret, []string{"not found", "not found", "not found", "ok"})
	c := newTestClient(srv, secret)

	err := c.Delete(context.Background(),
		"https://res.cloudinary.com/demo/auto/upload/v1/diary/photo.jpg")
	require.NoError(t, err)

	require.Len(t, *calls, 4)
	assert.Equal(t, "raw", (*calls)[0].resourceType)
	assert.Equal(t, "diary/photo.jpg", (*calls)[0].publicID)
	assert.Equal(t, "raw", (*calls)[1].resourceType)
	assert.Equal(t, "diary/photo", (*calls)[1].publicID)
	assert.Equal(t, "image", (*calls)[2].resourceType)
	assert.Equal(t, "diary/photo.jpg", (*calls)[2].publicID)
	assert.Equal(t, "image", (*calls)[3].resourceType)
	assert.Equal(t, "diary/photo", (*calls)[3].publicID)
}

func TestDelete_StopsAtFirstSuccess(t *testing.T) {
	const secret = "shh"
	srv, calls := newFakeStore(t, secret, []string{"not found", "ok"})
	c := newTestClient(srv, secret)

	err := c.Delete(context.Background(),
		"https://res.cloudinary.com/demo/auto/upload/v1/diary/report.docx")
	require.NoError(t, err)
	assert.Len(t, *calls, 2, "trial must stop at the first confirmed deletion")
}

func TestDelete_AllNotFoundIsFailure(t *testing.T) {
	const secret = "shh"
	srv, calls := newFakeStore(t, secret, nil) // everything answers "not found"
	c := newTestClient(srv, secret)

	err := c.Delete(context.Background(),
		"https://res.cloudinary.com/demo/auto/upload/v1/diary/ghost.pdf")
	assert.Error(t, err, "no attempt confirmed: overall result is failure")
	assert.Len(t, *calls, 4)
}

func TestDelete_ExplicitRawTriesBothCandidates(t *testing.T) {
	const secret = "shh"
	srv, calls := newFakeStore(t, secret, nil)
	c := newTestClient(srv, secret)

	_ = c.Delete(context.Background(),
		"https://res.cloudinary.com/demo/raw/upload/v1/diary/report.docx")

	require.Len(t, *calls, 2)
	assert.Equal(t, "raw", (*calls)[0].resourceType)
	assert.Equal(t, "diary/report.docx", (*calls)[0].publicID)
	assert.Equal(t, "diary/report", (*calls)[1].publicID)
}

func TestDelete_NoExtensionTriesOnce(t *testing.T) {
	const secret = "shh"
	srv, calls := newFakeStore(t, secret, []string{"ok"})
	c := newTestClient(srv, secret)

	err := c.Delete(context.Background(),
		"https://res.cloudinary.com/demo/image/upload/v1/diary/photo")
	require.NoError(t, err)
	assert.Len(t, *calls, 1, "identical candidates must not be retried")
}

// =========================================================================
// SIGNATURE
// =========================================================================

func TestDelete_SignatureCoversOnlyPublicIDAndTimestamp(t *testing.T) {
	const secret = "topsecret"
	srv, calls := newFakeStore(t, secret, []string{"ok"})
	c := newTestClient(srv, secret)

	err := c.Delete(context.Background(),
		"https://res.cloudinary.com/demo/raw/upload/v1/diary/a.docx")
	require.NoError(t, err)
	require.NotEmpty(t, *calls)

	call := (*calls)[0]
	want := shaHex(fmt.Sprintf("public_id=%s&timestamp=%s%s", call.publicID, call.timestamp, secret))
	assert.Equal(t, want, call.signature,
		"signature must be SHA-1 over public_id and timestamp sorted by name, plus the secret")

	// resource_type rides along as a form field but is never signed.
	assert.Equal(t, "raw", call.formType)
	assert.False(t, call.hasSignedType, "resource_type must not be part of the signed payload")
}

func TestDelete_ImageOmitsResourceTypeField(t *testing.T) {
	const secret = "shh"
	srv, calls := newFakeStore(t, secret, []string{"ok"})
	c := newTestClient(srv, secret)

	err := c.Delete(context.Background(),
		"https://res.cloudinary.com/demo/image/upload/v1/diary/pic.png")
	require.NoError(t, err)
	require.NotEmpty(t, *calls)
	assert.Empty(t, (*calls)[0].formType, "image destroys send no resource_type field")
}

// =========================================================================
// FAILURE MODES
// =========================================================================

func TestDelete_TransportFailureIsSwallowed(t *testing.T) {
	c := New(Config{
		CloudName: "demo",
		APIKey:    "k",
		APISecret: "s",
		BaseURL:   "http://127.0.0.1:1", // nothing listens here
	}, testLogger())

	err := c.Delete(context.Background(),
		"https://res.cloudinary.com/demo/image/upload/v1/diary/pic.png")
	assert.Error(t, err, "transport failure surfaces as a plain error, never a panic")
}

func TestDelete_UnparseableURL(t *testing.T) {
	srv, calls := newFakeStore(t, "s", nil)
	c := newTestClient(srv, "s")

	err := c.Delete(context.Background(), "https://example.com/not/a/store/url.jpg")
	assert.Error(t, err)
	assert.Empty(t, *calls, "no request is made when no public id can be derived")
}
