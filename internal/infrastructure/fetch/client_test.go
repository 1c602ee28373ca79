package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platelog/backend/internal/domain"
)

func newTestClient() *Client {
	return NewClient(5*time.Second, 0, nil)
}

func TestFetchJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PlateLog/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [{"name": "Fries"}]}`))
	}))
	defer server.Close()

	doc, err := newTestClient().FetchJSON(context.Background(), server.URL)
	require.NoError(t, err)

	obj, ok := doc.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, obj, "items")
}

func TestFetchJSON_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := newTestClient().FetchJSON(context.Background(), server.URL)
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestFetchText_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>menu</body></html>"))
	}))
	defer server.Close()

	body, err := newTestClient().FetchText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "menu")
}

func TestFetchBytes_RejectsNonPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login required</html>"))
	}))
	defer server.Close()

	_, err := newTestClient().FetchBytes(context.Background(), server.URL+"/receipt.pdf")
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestFetchBytes_AcceptsPDFMagic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.7 content"))
	}))
	defer server.Close()

	data, err := newTestClient().FetchBytes(context.Background(), server.URL+"/receipt.pdf?sig=abc")
	require.NoError(t, err)
	assert.Equal(t, byte('%'), data[0])
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	body, err := newTestClient().FetchText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_NoRetryOn404(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient().FetchText(context.Background(), server.URL)
	assert.ErrorIs(t, err, domain.ErrSourceFetch)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLooksLikePDFURL(t *testing.T) {
	assert.True(t, looksLikePDFURL("https://x.com/a.pdf"))
	assert.True(t, looksLikePDFURL("https://x.com/a.PDF?sig=1"))
	assert.False(t, looksLikePDFURL("https://x.com/a.html"))
}
