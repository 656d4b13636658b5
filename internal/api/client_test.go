package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Acuveth/life-rank/internal/store"
)

func newFileStore(t *testing.T) *store.FileStore {
	t.Helper()
	return store.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
}

func TestLoginDecodesAuthResult(t *testing.T) {
	var sawAuthHeader atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		if r.Header.Get("Authorization") != "" {
			sawAuthHeader.Store(true)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"T","token_type":"bearer","user":{"id":1,"email":"a@b.com"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, newFileStore(t))
	res, err := c.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "T", res.AccessToken)
	require.Equal(t, "a@b.com", res.User.Email)
	require.False(t, sawAuthHeader.Load(), "login must not attach a bearer token")
}

func TestBearerInjectionReadsCommittedToken(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":1,"email":"a@b.com","is_active":true,"is_verified":false}`))
	}))
	defer srv.Close()

	st := newFileStore(t)
	require.NoError(t, st.Save(context.Background(), &store.Record{
		AccessToken: "tok-live",
		UserJSON:    []byte(`{"id":1,"email":"a@b.com"}`),
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	c := NewClient(srv.URL, 5*time.Second, st)
	_, err := c.FetchProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-live", gotAuth.Load())
}

func TestLocalExpiryFastFail(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	st := newFileStore(t)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, &store.Record{
		AccessToken: "tok-stale",
		UserJSON:    []byte(`{}`),
		ExpiresAt:   time.Now().Add(-time.Minute),
	}))

	c := NewClient(srv.URL, 5*time.Second, st)
	err := c.VerifySession(ctx)
	require.True(t, IsAuthRejected(err))
	require.EqualValues(t, 0, hits.Load(), "expired token must not reach the network")

	// the stale record must have been cleared
	rec, err := st.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestMissingCredentialIsAuthRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, newFileStore(t))
	err := c.VerifySession(context.Background())
	require.True(t, IsAuthRejected(err))
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   Kind
		msg    string
	}{
		{401, `{"detail":"Incorrect email or password"}`, KindAuthRejected, "Incorrect email or password"},
		{403, `{"detail":"Not authorized"}`, KindAuthRejected, "Not authorized"},
		{400, `{"detail":"Password is required for registration"}`, KindValidation, "Password is required for registration"},
		{422, `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"}]}`, KindValidation, ""},
		{500, `{"detail":"Registration failed: boom"}`, KindTransient, "Registration failed: boom"},
		{502, `upstream gone`, KindTransient, ""},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))
		c := NewClient(srv.URL, 5*time.Second, newFileStore(t))
		_, err := c.Login(context.Background(), "a@b.com", "pw")
		srv.Close()

		require.Error(t, err, "status %d", tc.status)
		ae, ok := err.(*Error)
		require.True(t, ok)
		require.Equal(t, tc.kind, ae.Kind, "status %d", tc.status)
		require.Equal(t, tc.status, ae.Status)
		require.Equal(t, tc.msg, ae.Message, "status %d", tc.status)
	}
}

func TestConnectivityFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, time.Second, newFileStore(t))
	_, err := c.Login(context.Background(), "a@b.com", "pw")
	require.Error(t, err)
	ae, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindTransient, ae.Kind)
	require.False(t, IsAuthRejected(err))
}
