package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/brightclass/brightclass/pkg/authz"
	"github.com/brightclass/brightclass/pkg/httputil"
)

// Engine is the decision surface the API exposes.
type Engine interface {
	CheckAccess(ctx context.Context, resource, action string) bool
	CheckAccessWithDetails(ctx context.Context, resource, action string) authz.Decision
	CanAccessRoute(ctx context.Context, path string) bool
	CheckMultiplePermissions(ctx context.Context, perms []authz.Permission) map[string]bool
	CheckBulkAccess(ctx context.Context, paths []string) map[string]bool
	UpdatePermission(ctx context.Context, upd authz.PermissionUpdate) error
	BulkUpdatePermissions(ctx context.Context, updates []authz.PermissionUpdate) error
	ClearCache(ctx context.Context)
	ClearUserCache(ctx context.Context, userID string)
	SwitchTenant(ctx context.Context, tenantID string)
}

type checkRequest struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

type checkResponse struct {
	HasAccess bool `json:"has_access"`
}

// checkAccess handles POST /authz/check
func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Resource == "" || req.Action == "" {
		httputil.WriteBadRequest(w, "resource and action are required")
		return
	}

	allowed := s.engine.CheckAccess(r.Context(), req.Resource, req.Action)
	httputil.WriteSuccess(w, checkResponse{HasAccess: allowed})
}

// checkAccessDetails handles POST /authz/check/details
func (s *Server) checkAccessDetails(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Resource == "" || req.Action == "" {
		httputil.WriteBadRequest(w, "resource and action are required")
		return
	}

	httputil.WriteSuccess(w, s.engine.CheckAccessWithDetails(r.Context(), req.Resource, req.Action))
}

type batchCheckRequest struct {
	Permissions []authz.Permission `json:"permissions"`
}

// checkBatch handles POST /authz/check/batch
func (s *Server) checkBatch(w http.ResponseWriter, r *http.Request) {
	var req batchCheckRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.Permissions) == 0 {
		httputil.WriteBadRequest(w, "permissions list is required")
		return
	}

	results := s.engine.CheckMultiplePermissions(r.Context(), req.Permissions)
	httputil.WriteSuccess(w, map[string]interface{}{"results": results})
}

type routeCheckRequest struct {
	Paths []string `json:"paths"`
}

// checkRoutes handles POST /authz/routes/check
func (s *Server) checkRoutes(w http.ResponseWriter, r *http.Request) {
	var req routeCheckRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.Paths) == 0 {
		httputil.WriteBadRequest(w, "paths list is required")
		return
	}

	results := s.engine.CheckBulkAccess(r.Context(), req.Paths)
	httputil.WriteSuccess(w, map[string]interface{}{"results": results})
}

// updatePermission handles PUT /authz/permissions
func (s *Server) updatePermission(w http.ResponseWriter, r *http.Request) {
	if !s.engine.CheckAccess(r.Context(), "permissions", "manage") {
		httputil.WriteForbidden(w, "permission management requires the permissions:manage grant")
		return
	}

	var upd authz.PermissionUpdate
	if !httputil.ParseJSONOrError(w, r, &upd) {
		return
	}

	if err := s.engine.UpdatePermission(r.Context(), upd); err != nil {
		if errors.Is(err, authz.ErrValidation) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":  upd.UserID,
		"resource": upd.Resource,
		"action":   upd.Action,
		"granted":  upd.Granted,
	})
}

type bulkUpdateRequest struct {
	Updates []authz.PermissionUpdate `json:"updates"`
}

// bulkUpdatePermissions handles POST /authz/permissions/bulk
func (s *Server) bulkUpdatePermissions(w http.ResponseWriter, r *http.Request) {
	if !s.engine.CheckAccess(r.Context(), "permissions", "manage") {
		httputil.WriteForbidden(w, "permission management requires the permissions:manage grant")
		return
	}

	var req bulkUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.Updates) == 0 {
		httputil.WriteBadRequest(w, "updates list is required")
		return
	}

	if err := s.engine.BulkUpdatePermissions(r.Context(), req.Updates); err != nil {
		if errors.Is(err, authz.ErrValidation) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"applied": len(req.Updates)})
}

type switchTenantRequest struct {
	TenantID string `json:"tenant_id"`
}

// switchTenant handles POST /authz/tenant
func (s *Server) switchTenant(w http.ResponseWriter, r *http.Request) {
	var req switchTenantRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.TenantID == "" {
		httputil.WriteBadRequest(w, "tenant_id is required")
		return
	}

	s.engine.SwitchTenant(r.Context(), req.TenantID)
	httputil.WriteSuccess(w, map[string]string{"tenant_id": req.TenantID})
}

// clearCache handles DELETE /authz/cache
func (s *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	if !s.engine.CheckAccess(r.Context(), "permissions", "manage") {
		httputil.WriteForbidden(w, "cache administration requires the permissions:manage grant")
		return
	}

	s.engine.ClearCache(r.Context())
	httputil.WriteNoContent(w)
}

// clearUserCache handles DELETE /authz/cache/{userID}
func (s *Server) clearUserCache(w http.ResponseWriter, r *http.Request) {
	if !s.engine.CheckAccess(r.Context(), "permissions", "manage") {
		httputil.WriteForbidden(w, "cache administration requires the permissions:manage grant")
		return
	}

	userID := mux.Vars(r)["userID"]
	if userID == "" {
		httputil.WriteBadRequest(w, "user id is required")
		return
	}

	s.engine.ClearUserCache(r.Context(), userID)
	httputil.WriteNoContent(w)
}
