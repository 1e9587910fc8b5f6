package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospector/internal/antidetect"
)

func newVerifier() *HTTPVerifier {
	return NewHTTPVerifier(antidetect.NewSeeded(1))
}

func TestVerifyLiveSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html><body><h1>La Parrilla</h1><p>Reservas al 4832-1098</p></body></html>"))
	}))
	defer srv.Close()

	ok, err := newVerifier().Verify(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyParkedDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>Este dominio está en venta. Comprar este dominio.</body></html>"))
	}))
	defer srv.Close()

	ok, err := newVerifier().Verify(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyHeadRejectedFallsBackToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte("<html><body>Bienvenidos a nuestro restaurante</body></html>"))
	}))
	defer srv.Close()

	ok, err := newVerifier().Verify(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ok, err := newVerifier().Verify(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifySocialHostNeverReal(t *testing.T) {
	ok, err := newVerifier().Verify(context.Background(), "https://www.instagram.com/laparrillaba")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	ok, err := newVerifier().Verify(context.Background(), url)
	require.Error(t, err)
	assert.False(t, ok)
}

func TestIsSocialHost(t *testing.T) {
	assert.True(t, IsSocialHost("instagram.com"))
	assert.True(t, IsSocialHost("www.facebook.com"))
	assert.True(t, IsSocialHost("m.facebook.com"))
	assert.False(t, IsSocialHost("laparrilla.com.ar"))
}
