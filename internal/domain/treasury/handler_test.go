package treasury

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questboard/questboard-api/internal/pkg/response"
)

// Bad ledger paths are refused before the service is reached.
func TestOwnerLedgerRejectsBadPath(t *testing.T) {
	router := NewHandler(nil).AdminRoutes()

	tests := []struct {
		name      string
		path      string
		wantField string
	}{
		{name: "unknown tier", path: "/ledger/team/abc", wantField: "tier"},
		{name: "unknown tier on reconcile", path: "/ledger/school/abc/reconcile", wantField: "tier"},
		{name: "malformed owner id", path: "/ledger/user/not-a-uuid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

			var body response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			assert.Equal(t, "INVALID_INPUT", body.Error.Code)
			if tc.wantField != "" {
				assert.Equal(t, "Invalid tier. Must be: platform, org, or user", body.Error.Details[tc.wantField])
			}
		})
	}
}
