package rest_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listFriends(t *testing.T, r *gin.Engine, bearer string) []map[string]interface{} {
	t.Helper()
	w := doJSON(r, http.MethodGet, "/api/users/friends", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Friends []map[string]interface{} `json:"friends"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Friends
}

func receivedRequests(t *testing.T, r *gin.Engine, bearer string) []map[string]interface{} {
	t.Helper()
	w := doJSON(r, http.MethodGet, "/api/users/friends/requests/received", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Requests []map[string]interface{} `json:"requests"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Requests
}

func TestFriendFlow_RequestAcceptList(t *testing.T) {
	r := newTestServer(t)
	signup(t, r, "a@x.com", "Alice")
	signup(t, r, "b@x.com", "Bob")
	tokenA := login(t, r, "a@x.com")
	tokenB := login(t, r, "b@x.com")

	w := doJSON(r, http.MethodPost, "/api/users/friends/request?friendEmail=b@x.com", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	pending := receivedRequests(t, r, tokenB)
	require.Len(t, pending, 1)
	requester := pending[0]["requester"].(map[string]interface{})
	assert.Equal(t, "a@x.com", requester["email"])

	id := int64(pending[0]["friendship_id"].(float64))
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/users/friends/accept?friendshipId=%d", id), tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Both sides see each other once accepted.
	friendsOfA := listFriends(t, r, tokenA)
	require.Len(t, friendsOfA, 1)
	assert.Equal(t, "b@x.com", friendsOfA[0]["email"])

	friendsOfB := listFriends(t, r, tokenB)
	require.Len(t, friendsOfB, 1)
	assert.Equal(t, "a@x.com", friendsOfB[0]["email"])

	// The accepted request no longer shows as pending.
	assert.Empty(t, receivedRequests(t, r, tokenB))
}

func TestFriendRequest_Duplicate(t *testing.T) {
	r := newTestServer(t)
	signup(t, r, "a@x.com", "Alice")
	signup(t, r, "b@x.com", "Bob")
	tokenA := login(t, r, "a@x.com")

	w := doJSON(r, http.MethodPost, "/api/users/friends/request?friendEmail=b@x.com", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/users/friends/request?friendEmail=b@x.com", tokenA, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFriendRequest_Self(t *testing.T) {
	r := newTestServer(t)
	signup(t, r, "a@x.com", "Alice")
	tokenA := login(t, r, "a@x.com")

	w := doJSON(r, http.MethodPost, "/api/users/friends/request?friendEmail=a@x.com", tokenA, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFriendRequest_UnknownTarget(t *testing.T) {
	r := newTestServer(t)
	signup(t, r, "a@x.com", "Alice")
	tokenA := login(t, r, "a@x.com")

	w := doJSON(r, http.MethodPost, "/api/users/friends/request?friendEmail=ghost@x.com", tokenA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFriendRequest_MissingParam(t *testing.T) {
	r := newTestServer(t)
	signup(t, r, "a@x.com", "Alice")
	tokenA := login(t, r, "a@x.com")

	w := doJSON(r, http.MethodPost, "/api/users/friends/request", tokenA, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFriendAccept_InvalidID(t *testing.T) {
	r := newTestServer(t)
	signup(t, r, "a@x.com", "Alice")
	tokenA := login(t, r, "a@x.com")

	w := doJSON(r, http.MethodPost, "/api/users/friends/accept?friendshipId=abc", tokenA, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFriendAccept_NotFound(t *testing.T) {
	r := newTestServer(t)
	signup(t, r, "a@x.com", "Alice")
	tokenA := login(t, r, "a@x.com")

	w := doJSON(r, http.MethodPost, "/api/users/friends/accept?friendshipId=999", tokenA, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFriendReject_ThenAcceptFails(t *testing.T) {
	r := newTestServer(t)
	signup(t, r, "a@x.com", "Alice")
	signup(t, r, "b@x.com", "Bob")
	tokenA := login(t, r, "a@x.com")
	tokenB := login(t, r, "b@x.com")

	w := doJSON(r, http.MethodPost, "/api/users/friends/request?friendEmail=b@x.com", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)

	pending := receivedRequests(t, r, tokenB)
	require.Len(t, pending, 1)
	id := int64(pending[0]["friendship_id"].(float64))

	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/users/friends/reject?friendshipId=%d", id), tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A rejected edge is terminal.
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/users/friends/accept?friendshipId=%d", id), tokenB, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Empty(t, listFriends(t, r, tokenA))
	assert.Empty(t, listFriends(t, r, tokenB))
}

func TestFriendRemove(t *testing.T) {
	r := newTestServer(t)
	signup(t, r, "a@x.com", "Alice")
	signup(t, r, "b@x.com", "Bob")
	tokenA := login(t, r, "a@x.com")
	tokenB := login(t, r, "b@x.com")

	w := doJSON(r, http.MethodPost, "/api/users/friends/request?friendEmail=b@x.com", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := receivedRequests(t, r, tokenB)
	require.Len(t, pending, 1)
	id := int64(pending[0]["friendship_id"].(float64))
	w = doJSON(r, http.MethodPost, fmt.Sprintf("/api/users/friends/accept?friendshipId=%d", id), tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodDelete, "/api/users/friends?friendEmail=b@x.com", tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, listFriends(t, r, tokenA))
	assert.Empty(t, listFriends(t, r, tokenB))
}

func TestFriendEndpoints_RequireAuth(t *testing.T) {
	r := newTestServer(t)

	paths := []struct{ method, path string }{
		{http.MethodPost, "/api/users/friends/request?friendEmail=b@x.com"},
		{http.MethodPost, "/api/users/friends/accept?friendshipId=1"},
		{http.MethodPost, "/api/users/friends/reject?friendshipId=1"},
		{http.MethodGet, "/api/users/friends"},
		{http.MethodGet, "/api/users/friends/requests/received"},
		{http.MethodDelete, "/api/users/friends?friendEmail=b@x.com"},
	}
	for _, p := range paths {
		w := doJSON(r, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
}
