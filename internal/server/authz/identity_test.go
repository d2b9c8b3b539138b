package authz

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/messagely/internal/logging"
	"github.com/dmitrijs2005/messagely/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	identity string
	ok       bool
	body     string
}

func runAuthenticate(t *testing.T, r *http.Request) (seen, *httptest.ResponseRecorder) {
	t.Helper()
	var s seen
	h := Authenticate(auth.NewIssuer("secret", 0), logging.Nop{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.identity, s.ok = IdentityFrom(r.Context())
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		s.body = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return s, rec
}

func TestAuthenticate(t *testing.T) {
	good, err := auth.NewIssuer("secret", 0).Issue("test1")
	require.NoError(t, err)
	other, err := auth.NewIssuer("other", 0).Issue("test1")
	require.NoError(t, err)
	fromQuery, err := auth.NewIssuer("secret", 0).Issue("query")
	require.NoError(t, err)

	tests := []struct {
		name   string
		req    func() *http.Request
		wantID string
		wantOK bool
	}{
		{
			name:   "no token",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/users/", nil) },
			wantOK: false,
		},
		{
			name:   "query token",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/users/?_token="+good, nil) },
			wantID: "test1",
			wantOK: true,
		},
		{
			name: "body token",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/messages/", strings.NewReader(`{"_token":"`+good+`","body":"x"}`))
			},
			wantID: "test1",
			wantOK: true,
		},
		{
			name: "query wins over body",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/messages/?_token="+fromQuery, strings.NewReader(`{"_token":"`+good+`"}`))
			},
			wantID: "query",
			wantOK: true,
		},
		{
			name:   "bad signature",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/users/?_token="+other, nil) },
			wantOK: false,
		},
		{
			name:   "garbage token",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/users/?_token=abc", nil) },
			wantOK: false,
		},
		{
			name: "non-json body",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/messages/", strings.NewReader("not json"))
			},
			wantOK: false,
		},
		{
			name: "token of wrong type",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/messages/", strings.NewReader(`{"_token":42}`))
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := runAuthenticate(t, tt.req())

			// Resolution never rejects.
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.wantOK, s.ok)
			assert.Equal(t, tt.wantID, s.identity)
		})
	}
}

func TestAuthenticate_RestoresBody(t *testing.T) {
	token, err := auth.NewIssuer("secret", 0).Issue("test1")
	require.NoError(t, err)

	body := `{"_token":"` + token + `","to_username":"test2","body":"hi"}`
	s, _ := runAuthenticate(t, httptest.NewRequest(http.MethodPost, "/messages/", strings.NewReader(body)))

	assert.True(t, s.ok)
	assert.Equal(t, body, s.body)
}

func TestIdentityFrom_Empty(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := IdentityFrom(r.Context())
	assert.False(t, ok)

	_, ok = IdentityFrom(WithIdentity(r.Context(), ""))
	assert.False(t, ok)

	u, ok := IdentityFrom(WithIdentity(r.Context(), "a"))
	assert.True(t, ok)
	assert.Equal(t, "a", u)
}

func TestAuthenticate_LargeBodyKeptWhole(t *testing.T) {
	token, err := auth.NewIssuer("secret", 0).Issue("test1")
	require.NoError(t, err)

	body := `{"body":"` + strings.Repeat("x", 2<<20) + `","_token":"` + token + `"}`
	s, _ := runAuthenticate(t, httptest.NewRequest(http.MethodPost, "/messages/", strings.NewReader(body)))

	assert.True(t, s.ok)
	assert.Equal(t, "test1", s.identity)
	assert.Len(t, s.body, len(body))
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestAuthenticate_ReadErrorReachesHandler(t *testing.T) {
	boom := errors.New("too large")
	r := httptest.NewRequest(http.MethodPost, "/messages/", nil)
	r.Body = io.NopCloser(io.MultiReader(strings.NewReader(`{"_token":`), failingReader{boom}))

	var readErr error
	var ok bool
	h := Authenticate(auth.NewIssuer("secret", 0), logging.Nop{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = IdentityFrom(r.Context())
		var b []byte
		b, readErr = io.ReadAll(r.Body)
		assert.Equal(t, `{"_token":`, string(b))
	}))
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.False(t, ok)
	assert.ErrorIs(t, readErr, boom)
}
