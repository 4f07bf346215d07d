package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"requisas/config"
	"requisas/loader"
	"requisas/model"
	"requisas/requisition"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requisas_test.db")
	db, err := sqlx.Open("sqlite3", path+dsnParams)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, loader.InitDatabase(db))
	require.NoError(t, loader.SeedDemoData(db))

	cfg := config.Config{JWTSecret: "test-secret", TokenTTLHours: 1}
	svc := &requisition.Service{DB: db, Loc: time.UTC}

	mux := http.NewServeMux()
	SetupRoutes(mux, db, svc, cfg)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func login(t *testing.T, ts *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func doJSON(t *testing.T, method, url, token string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "supervisor1", "password": "wrong"})
	resp, err := http.Post(ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequisitionFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	requesterToken := login(t, ts, "supervisor1", "pass")
	approverToken := login(t, ts, "bodega1", "pass")

	// Pick a seeded inventory item.
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/inventory", requesterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []model.InventoryItem
	decodeBody(t, resp, &items)
	require.NotEmpty(t, items)
	item := items[0]

	// Approvers may not submit requisitions.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/requisitions/create", approverToken, map[string]interface{}{
		"items": []map[string]interface{}{{"inventoryItemId": item.ID, "qty": 3}},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Submit as requester.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/requisitions/create", requesterToken, map[string]interface{}{
		"items": []map[string]interface{}{{"inventoryItemId": item.ID, "qty": 3}},
		"note":  "repuesto urgente",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Requisition model.Requisition `json:"requisition"`
	}
	decodeBody(t, resp, &created)
	assert.Equal(t, model.StatusPending, created.Requisition.Status)
	assert.Regexp(t, `^REQ-\d{8}-\d{4}$`, created.Requisition.Code)
	require.Len(t, created.Requisition.Items, 1)

	// Requesters may not see the approval queue or decide.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/requisitions/pending", requesterToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/requisitions/pending", approverToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending []model.Requisition
	decodeBody(t, resp, &pending)
	require.Len(t, pending, 1)

	// Approve partially.
	itemID := created.Requisition.Items[0].ID
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/requisitions/decide", approverToken, map[string]interface{}{
		"requisitionId": created.Requisition.ID,
		"decision":      "approve",
		"approvedQty":   map[string]float64{strconv.FormatInt(itemID, 10): 2},
		"comment":       "solo dos",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var decided requisition.DecideResult
	decodeBody(t, resp, &decided)
	assert.Equal(t, model.StatusPartiallyApproved, decided.Requisition.Status)
	assert.Empty(t, decided.Shortfalls)

	// Stock was deducted.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/inventory", requesterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var after []model.InventoryItem
	decodeBody(t, resp, &after)
	assert.Equal(t, item.Stock-2, after[0].Stock)

	// Second decision conflicts.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/requisitions/decide", approverToken, map[string]interface{}{
		"requisitionId": created.Requisition.ID,
		"decision":      "reject",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Fetch by id and the requester's own list.
	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/requisitions/%d", ts.URL, created.Requisition.ID), requesterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched model.Requisition
	decodeBody(t, resp, &fetched)
	assert.Equal(t, created.Requisition.Code, fetched.Code)
	require.Len(t, fetched.Approvals, 1)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/requisitions/mine", requesterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []model.Requisition
	decodeBody(t, resp, &mine)
	require.Len(t, mine, 1)
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	ts := newTestServer(t)

	requesterToken := login(t, ts, "supervisor1", "pass")
	adminToken := login(t, ts, "admin", "pass")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/users", requesterToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []model.User
	decodeBody(t, resp, &users)
	assert.Len(t, users, 3)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/users/create", adminToken, map[string]interface{}{
		"username": "bodega2",
		"fullName": "Bodega Dos",
		"password": "pass",
		"role":     "approver",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// The new approver can log in straight away.
	login(t, ts, "bodega2", "pass")

	// Area creation is admin-only too.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/areas", requesterToken, map[string]interface{}{
		"code": "A3", "name": "Area C",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/areas", adminToken, map[string]interface{}{
		"code": "A3", "name": "Area C",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestHistoryExportCSV(t *testing.T) {
	ts := newTestServer(t)
	requesterToken := login(t, ts, "supervisor1", "pass")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/inventory", requesterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []model.InventoryItem
	decodeBody(t, resp, &items)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/requisitions/create", requesterToken, map[string]interface{}{
		"items": []map[string]interface{}{{"inventoryItemId": items[0].ID, "qty": 1}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/requisitions/history/export_csv", requesterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "export starts with a UTF-8 BOM")
	assert.Contains(t, string(raw), items[0].Sku)
	assert.Contains(t, string(raw), "supervisor1")
}
