package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterToken(t *testing.T) {
	var gotPath, gotAuth, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var body tokenBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotToken = body.Token
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "session-secret")
	require.NoError(t, client.RegisterToken(context.Background(), "tok-1"))

	require.Equal(t, "POST /notifications/token/register", gotPath)
	require.Equal(t, "Bearer session-secret", gotAuth)
	require.Equal(t, "tok-1", gotToken)
}

func TestRemoveToken(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	require.NoError(t, client.RemoveToken(context.Background(), "tok-1"))
	require.Equal(t, "POST /notifications/token/remove", gotPath)
}

func TestFetchFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/notifications", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "10", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(feedResponse{
			Notifications: []wireNotification{
				{ID: "n-1", Title: "Blood needed", Body: "O-", CreatedAt: "2026-08-01T10:00:00Z"},
				{ID: "n-2", Title: "Request matched", IsRead: true, CreatedAt: "2026-08-01T09:00:00Z"},
			},
			UnreadCount: 1,
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	page, err := client.FetchFeed(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	require.Equal(t, "n-1", page.Notifications[0].ID)
	require.False(t, page.Notifications[0].IsRead)
	require.True(t, page.Notifications[1].IsRead)
	require.Equal(t, 1, page.UnreadCount)
}

func TestMutationEndpoints(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	ctx := context.Background()
	require.NoError(t, client.MarkRead(ctx, "n-1"))
	require.NoError(t, client.MarkAllRead(ctx))
	require.NoError(t, client.DeleteNotification(ctx, "n-2"))

	require.Equal(t, []string{
		"PATCH /notifications/n-1/read",
		"POST /notifications/read-all",
		"DELETE /notifications/n-2",
	}, got)
}

func TestCheckMissed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/notifications/check-missed", r.URL.Path)
		json.NewEncoder(w).Encode(missedResponse{MissedNotifications: 4})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	missed, err := client.CheckMissed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, missed)
}

func TestNon2xxBecomesBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	err := client.MarkAllRead(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}
