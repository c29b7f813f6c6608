package controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"Gin_postgres_redis_tool_ledger/testutil"
)

func TestLocationsCRUD(t *testing.T) {
	e := setup(t)

	w := testutil.DoRequest(e.Router, http.MethodPost, "/api/storagelocations",
		map[string]any{"type": "Cabinet", "name": "Cabinet 2", "address": "Room 5"}, e.keeper)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	id := uint(testutil.ParseResponse(w)["id"].(float64))

	if w := testutil.DoRequest(e.Router, http.MethodPost, "/api/storagelocations",
		map[string]any{"type": "Box", "name": "nope"}, e.worker); w.Code != http.StatusForbidden {
		t.Errorf("worker create: %d", w.Code)
	}

	types := testutil.DoRequest(e.Router, http.MethodGet, "/api/storagelocations/types", nil, e.worker)
	if types.Code != http.StatusOK {
		t.Errorf("types: %d", types.Code)
	}

	w = testutil.DoRequest(e.Router, http.MethodPut, fmt.Sprintf("/api/storagelocations/%d", id),
		map[string]any{"type": "Cabinet", "name": "Cabinet 2b"}, e.keeper)
	if w.Code != http.StatusOK || testutil.ParseResponse(w)["name"] != "Cabinet 2b" {
		t.Errorf("update: %d %s", w.Code, w.Body.String())
	}

	// the fixture location holds the fixture tool
	w = testutil.DoRequest(e.Router, http.MethodDelete, fmt.Sprintf("/api/storagelocations/%d", e.f.Location.ID), nil, e.keeper)
	if w.Code != http.StatusConflict || testutil.ParseResponse(w)["toolsCount"] != float64(1) {
		t.Errorf("delete busy location: %d %s", w.Code, w.Body.String())
	}
	if w := testutil.DoRequest(e.Router, http.MethodDelete, fmt.Sprintf("/api/storagelocations/%d", id), nil, e.keeper); w.Code != http.StatusNoContent {
		t.Errorf("delete empty location: %d", w.Code)
	}
	if w := testutil.DoRequest(e.Router, http.MethodGet, fmt.Sprintf("/api/storagelocations/%d", id), nil, e.keeper); w.Code != http.StatusNotFound {
		t.Errorf("get deleted location: %d", w.Code)
	}
}

func TestToolsCRUD(t *testing.T) {
	e := setup(t)

	w := testutil.DoRequest(e.Router, http.MethodPost, "/api/tools",
		map[string]any{"article": "MM-4", "name": "Multimeter", "storageLocationId": e.f.Location.ID}, e.admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	id := uint(testutil.ParseResponse(w)["id"].(float64))

	list := testutil.ParseList(testutil.DoRequest(e.Router, http.MethodGet, "/api/tools?q=multi", nil, e.worker))
	if len(list) != 1 {
		t.Errorf("search = %v", list)
	}

	w = testutil.DoRequest(e.Router, http.MethodPatch, fmt.Sprintf("/api/tools/%d", id),
		map[string]any{"description": "True RMS"}, e.keeper)
	if w.Code != http.StatusOK || testutil.ParseResponse(w)["description"] != "True RMS" {
		t.Errorf("patch: %d %s", w.Code, w.Body.String())
	}

	if w := testutil.DoRequest(e.Router, http.MethodGet, "/api/tools/0", nil, e.keeper); w.Code != http.StatusBadRequest {
		t.Errorf("id 0: %d", w.Code)
	}
	if w := testutil.DoRequest(e.Router, http.MethodDelete, fmt.Sprintf("/api/tools/%d", id), nil, e.worker); w.Code != http.StatusForbidden {
		t.Errorf("worker delete: %d", w.Code)
	}
	if w := testutil.DoRequest(e.Router, http.MethodDelete, fmt.Sprintf("/api/tools/%d", id), nil, e.keeper); w.Code != http.StatusNoContent {
		t.Errorf("delete: %d", w.Code)
	}
}
