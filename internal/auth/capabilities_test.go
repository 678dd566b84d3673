package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karanja-dev/duka-pos/internal/common"
)

func TestCanAccess(t *testing.T) {
	cases := []struct {
		role    string
		feature string
		want    bool
	}{
		{RoleAdmin, FeatureInventory, true},
		{RoleAdmin, FeatureUsers, true},
		{RoleAdmin, FeatureExpenseDelete, true},
		{RoleManager, FeatureInventory, true},
		{RoleManager, FeatureReports, true},
		{RoleManager, FeatureUsers, false},
		{RoleManager, FeatureExpenseDelete, false},
		{RoleInventoryStaff, FeatureInventory, true},
		{RoleInventoryStaff, FeatureReports, false},
		{RoleInventoryStaff, FeatureCustomers, false},
		{RoleCashier, FeatureCustomers, true},
		{RoleCashier, FeatureInventory, false},
		{RoleCashier, FeaturePOS, true},
		{RoleCashier, "unknown_feature", false},
		{"unknown_role", FeaturePOS, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CanAccess(tc.role, tc.feature), "role=%s feature=%s", tc.role, tc.feature)
	}
}

func TestRequireFeature(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireFeature(FeatureReports)(next)

	t.Run("allowed role passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		ctx := common.WithSession(context.Background(), common.Session{UserID: "u1", Role: RoleManager})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forbidden role rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		ctx := common.WithSession(context.Background(), common.Session{UserID: "u1", Role: RoleCashier})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing session rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/reports", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
