package directory

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testCode = "PM8TJTLJbPRGxSbc8EJi42Wrr6QbNSaSSVJ5Y3E4pbCYiTHUskHg1393" +
	"5Ubb7q8tx9GVbh2UuRnBc3WSyJHhUrw8KhprKnn9eDznYGieTzFcwQRya4GA"

// newTestClient spins up a directory stub and a client pointed at it.
func newTestClient(t *testing.T,
	handler http.HandlerFunc) (*Client, *httptest.Server) {

	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		BaseURL:    server.URL,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	return client, server
}

// TestCreateStatusMapping asserts the status mapping of the create
// endpoint, including the "already registered" success case.
func TestCreateStatusMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		statusCode int
		body       string
		wantOK     bool
		wantErr    error
	}{{
		name:       "new registration",
		statusCode: http.StatusCreated,
		body: `{"claimed":false,"nymID":"nym1","nymName":"snowycat",` +
			`"segwit":false,"token":"tok1"}`,
		wantOK: true,
	}, {
		name:       "existing registration",
		statusCode: http.StatusOK,
		body: `{"claimed":true,"nymID":"nym1","nymName":"snowycat",` +
			`"segwit":false,"token":""}`,
		wantOK: true,
	}, {
		name:       "malformed code",
		statusCode: http.StatusBadRequest,
		body:       `{"message":"invalid payment code"}`,
		wantErr:    ErrConflict,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, _ := newTestClient(
				t, func(w http.ResponseWriter,
					r *http.Request) {

					require.Equal(
						t, "/create", r.URL.Path,
					)
					w.WriteHeader(tc.statusCode)
					w.Write([]byte(tc.body))
				},
			)

			res := client.Create(context.Background(), testCode)
			require.Equal(t, tc.statusCode, res.Code)
			require.Equal(t, tc.wantOK, res.OK())

			if tc.wantErr != nil {
				require.ErrorIs(t, res.Err(), tc.wantErr)
			} else {
				require.NoError(t, res.Err())
			}
		})
	}
}

// TestTokenNotFound asserts the 404 mapping of the token endpoint.
func TestTokenNotFound(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(
		t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"code not registered"}`))
		},
	)

	res := client.Token(context.Background(), testCode)
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "code not registered", res.Message)
	require.ErrorIs(t, res.Err(), ErrNotFound)
}

// TestNymSuccess asserts response decoding of a full account record.
func TestNymSuccess(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(
		t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/nym", r.URL.Path)
			w.Write([]byte(`{
				"nymID": "nym1",
				"nymName": "snowycat",
				"codes": [
					{"code": "PM8Ta", "claimed": true,
					 "segwit": false}
				],
				"followers": [{"nymId": "nym2"}],
				"following": [
					{"nymId": "nym3"}, {"nymId": "nym4"}
				]
			}`))
		},
	)

	res := client.Nym(context.Background(), "nym1", false)
	require.NoError(t, res.Err())
	require.Equal(t, "nym1", res.NymID)
	require.Equal(t, "snowycat", res.NymName)
	require.Len(t, res.Codes, 1)
	require.True(t, res.Codes[0].Claimed)
	require.Len(t, res.Followers, 1)
	require.Len(t, res.Following, 2)
}

// TestClaimAuthHeader asserts the auth token is sent and the 401 and 400
// outcomes map onto the taxonomy.
func TestClaimAuthHeader(t *testing.T) {
	t.Parallel()

	var gotToken atomic.Value
	client, _ := newTestClient(
		t, func(w http.ResponseWriter, r *http.Request) {
			gotToken.Store(r.Header.Get("auth-token"))

			switch r.Header.Get("auth-token") {
			case "good":
				w.Write([]byte(`{"claimed":"` + testCode +
					`","token":"rotated"}`))
			case "stale":
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message":"bad token"}`))
			default:
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(
					`{"message":"already claimed"}`,
				))
			}
		},
	)

	ctx := context.Background()

	res := client.Claim(ctx, "good", "c2lnbmF0dXJl")
	require.NoError(t, res.Err())
	require.Equal(t, "good", gotToken.Load())
	require.Equal(t, "rotated", res.Token)

	res = client.Claim(ctx, "stale", "c2lnbmF0dXJl")
	require.ErrorIs(t, res.Err(), ErrUnauthorized)

	res = client.Claim(ctx, "claimed", "c2lnbmF0dXJl")
	require.ErrorIs(t, res.Err(), ErrConflict)
}

// TestFollowUnfollow asserts the follow endpoints' request shape and
// failure mappings.
func TestFollowUnfollow(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(
		t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/follow":
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(
					`{"message":"target not found"}`,
				))
			case "/unfollow":
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"message":"not following"}`))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		},
	)

	ctx := context.Background()

	followRes := client.Follow(ctx, "tok", "sig", "nym9")
	require.ErrorIs(t, followRes.Err(), ErrNotFound)

	unfollowRes := client.Unfollow(ctx, "tok", "sig", "nym9")
	require.ErrorIs(t, unfollowRes.Err(), ErrConflict)
}

// TestRateLimitRetry asserts that a 429 is retried exactly once and that a
// subsequent success is returned.
func TestRateLimitRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(
		t, func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}

			w.Write([]byte(`{"token":"tok1"}`))
		},
	)

	res := client.Token(context.Background(), testCode)
	require.NoError(t, res.Err())
	require.Equal(t, "tok1", res.Token)
	require.EqualValues(t, 2, calls.Load())
}

// TestRateLimitNoSecondRetry asserts that a second 429 is surfaced rather
// than retried again.
func TestRateLimitNoSecondRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(
		t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)

	res := client.Token(context.Background(), testCode)
	require.Equal(t, http.StatusTooManyRequests, res.Code)
	require.EqualValues(t, 2, calls.Load())
}

// TestTransportSentinel asserts that an unreachable service maps onto the
// sentinel status, carrying the underlying error text.
func TestTransportSentinel(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(&Config{BaseURL: url})
	require.NoError(t, err)

	res := client.Token(context.Background(), testCode)
	require.Equal(t, StatusTransportFailure, res.Code)
	require.NotEmpty(t, res.Message)
	require.ErrorIs(t, res.Err(), ErrTransport)
	require.False(t, res.OK())
}

// TestContentLengthIsByteLength asserts that the request content length is
// the UTF-8 byte length of the body, not its character count.
func TestContentLengthIsByteLength(t *testing.T) {
	t.Parallel()

	var (
		gotLength atomic.Int64
		bodyBytes atomic.Int64
	)
	client, _ := newTestClient(
		t, func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)

			gotLength.Store(r.ContentLength)
			bodyBytes.Store(int64(len(body)))

			w.Write([]byte(`{"token":"tok1"}`))
		},
	)

	// A "code" full of multi-byte characters: each rune below encodes to
	// more than one UTF-8 byte, so the byte length strictly exceeds the
	// character count.
	multiByte := "PM8T-code-émoji-ツ-込"
	res := client.Token(context.Background(), multiByte)
	require.NoError(t, res.Err())

	require.Equal(t, bodyBytes.Load(), gotLength.Load())
	require.Greater(
		t, gotLength.Load(),
		int64(len([]rune(`{"code":"`+multiByte+`"}`))),
	)
}
