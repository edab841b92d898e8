package database

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantHeader carries the tenant identifier on API requests. The gateway in
// front of this service validates the caller and injects the header.
const TenantHeader = "X-Tenant-ID"

// WithTenantContext creates middleware that sets up a tenant-scoped DB connection
// from the tenant ID header. The connection is automatically cleaned up after
// the handler returns.
func WithTenantContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(TenantHeader)
			if raw == "" {
				writeError(w, http.StatusBadRequest, "missing_tenant", "Missing tenant ID header")
				return
			}

			tenantID, err := uuid.Parse(raw)
			if err != nil {
				logger.Error("Invalid tenant ID format",
					zap.String("tenant_id", raw),
					zap.Error(err))
				writeError(w, http.StatusBadRequest, "invalid_tenant_id", "Invalid tenant ID format")
				return
			}

			scope, err := db.WithTenant(r.Context(), tenantID)
			if err != nil {
				logger.Error("Failed to acquire tenant connection",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			ctx := SetTenantID(SetTenantScope(r.Context(), scope), tenantID)
			next(w, r.WithContext(ctx))
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
