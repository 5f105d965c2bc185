package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/brightclass/brightclass/pkg/audit"
	"github.com/brightclass/brightclass/pkg/identity"
)

// Service is the single authorization gate for the platform. It is
// constructed explicitly and injected into its consumers; cache, tenant
// context and configuration are instance state, not globals.
//
// Every read/decision method is fail-closed and never returns an error:
// an unauthenticated caller, a store failure or a missing grant all resolve
// to a denial. Mutation methods propagate errors so callers can react.
type Service struct {
	store    Store
	resolver identity.Resolver
	cache    DecisionCache
	sink     audit.Sink
	matcher  *Matcher
	metrics  *Metrics
	log      logrus.FieldLogger
	group    singleflight.Group

	auditReads  bool
	adminEmails map[string]struct{}

	mu       sync.RWMutex
	tenantID string
}

// Options configures optional Service behavior.
type Options struct {
	// AuditReads enables audit entries for decision calls. Mutations are
	// always audited regardless of this flag.
	AuditReads bool

	// AdminEmails lists addresses treated as platform admins even without
	// the claim flag. Legacy fallback, empty by default.
	AdminEmails []string

	// Metrics to record into; unregistered metrics are created when nil.
	Metrics *Metrics

	// Logger for diagnostics. Defaults to the standard logrus logger.
	Logger logrus.FieldLogger
}

// NewService creates the decision engine. A nil cache falls back to an
// in-memory cache with the default TTL; a nil sink disables audit output.
func NewService(store Store, resolver identity.Resolver, cache DecisionCache, sink audit.Sink, opts Options) *Service {
	if cache == nil {
		cache = NewMemoryCache(0, 0)
	}
	if sink == nil {
		sink = audit.NoopSink{}
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	adminEmails := make(map[string]struct{}, len(opts.AdminEmails))
	for _, email := range opts.AdminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			adminEmails[email] = struct{}{}
		}
	}

	return &Service{
		store:       store,
		resolver:    resolver,
		cache:       cache,
		sink:        sink,
		matcher:     NewMatcher(),
		metrics:     opts.Metrics,
		log:         opts.Logger,
		auditReads:  opts.AuditReads,
		adminEmails: adminEmails,
	}
}

// CheckAccess reports whether the current caller may perform action on
// resource. Platform admins bypass cache and store entirely.
func (s *Service) CheckAccess(ctx context.Context, resource, action string) bool {
	timer := prometheus.NewTimer(s.metrics.DecisionDuration.WithLabelValues("permission"))
	defer timer.ObserveDuration()

	id, err := s.resolver.Resolve(ctx)
	if err != nil || id == nil {
		s.metrics.recordDecision("permission", false)
		return false
	}

	perm := Permission{Resource: resource, Action: action}
	allowed := s.decidePermission(ctx, id, perm)
	s.metrics.recordDecision("permission", allowed)
	s.auditDecision(ctx, id, audit.KindPermissionCheck, resource, action, "", allowed)
	return allowed
}

// CheckAccessWithDetails performs the same decision as CheckAccess and adds
// a human-readable reason plus, on denial, the role that would be
// authorized. It never returns an error.
func (s *Service) CheckAccessWithDetails(ctx context.Context, resource, action string) Decision {
	timer := prometheus.NewTimer(s.metrics.DecisionDuration.WithLabelValues("permission"))
	defer timer.ObserveDuration()

	d := Decision{CheckedAt: time.Now().UTC()}

	id, err := s.resolver.Resolve(ctx)
	if err != nil || id == nil {
		d.Reason = ReasonNotAuthenticated
		s.metrics.recordDecision("permission", false)
		return d
	}

	perm := Permission{Resource: resource, Action: action}
	if s.isPlatformAdmin(id) {
		d.HasAccess = true
		d.Reason = "Platform administrator"
	} else if s.decidePermission(ctx, id, perm) {
		d.HasAccess = true
		d.Reason = fmt.Sprintf("Granted for %s", perm.String())
	} else {
		d.Reason = ReasonNoGrant
		// Best-effort discovery of which role holds the grant.
		if role, roleErr := s.store.RequiredRole(ctx, resource, action); roleErr == nil && role != "" {
			d.RequiredRole = role
			d.Reason = fmt.Sprintf("Requires role %q", role)
		}
	}

	s.metrics.recordDecision("permission", d.HasAccess)
	s.auditDecision(ctx, id, audit.KindPermissionCheck, resource, action, "", d.HasAccess)
	return d
}

// CanAccessRoute reports whether the caller may reach the given path.
// An exact template match is preferred; otherwise the pattern matcher
// resolves parameterized templates.
func (s *Service) CanAccessRoute(ctx context.Context, path string) bool {
	timer := prometheus.NewTimer(s.metrics.DecisionDuration.WithLabelValues("route"))
	defer timer.ObserveDuration()

	id, err := s.resolver.Resolve(ctx)
	if err != nil || id == nil {
		s.metrics.recordDecision("route", false)
		return false
	}

	allowed := s.decideRoute(ctx, id, path, nil)
	s.metrics.recordDecision("route", allowed)
	s.auditDecision(ctx, id, audit.KindRouteCheck, "", "", path, allowed)
	return allowed
}

// CheckMultiplePermissions evaluates a set of pairs with a single batched
// grant query. Results agree with individual CheckAccess calls; pairs not
// present in the grant set are denied.
func (s *Service) CheckMultiplePermissions(ctx context.Context, perms []Permission) map[string]bool {
	results := make(map[string]bool, len(perms))
	for _, p := range perms {
		results[p.String()] = false
	}

	id, err := s.resolver.Resolve(ctx)
	if err != nil || id == nil {
		return results
	}

	if s.isPlatformAdmin(id) {
		for key := range results {
			results[key] = true
		}
		return results
	}

	seen := make(map[string]struct{}, len(perms))
	resources := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p.Resource]; !ok {
			seen[p.Resource] = struct{}{}
			resources = append(resources, p.Resource)
		}
	}

	granted, err := s.store.GrantedSet(ctx, id.UserID, id.Role, resources)
	if err != nil {
		s.metrics.StoreErrorsTotal.Inc()
		s.log.WithError(err).Warn("batched grant query failed, denying all")
		return results
	}

	for _, p := range perms {
		_, ok := granted[p.String()]
		results[p.String()] = ok
		s.cache.Set(ctx, PermissionKey(id.UserID, p), ok)
	}
	return results
}

// CheckBulkAccess evaluates several paths, sharing one route-template
// listing across the batch.
func (s *Service) CheckBulkAccess(ctx context.Context, paths []string) map[string]bool {
	results := make(map[string]bool, len(paths))
	for _, path := range paths {
		results[path] = false
	}

	id, err := s.resolver.Resolve(ctx)
	if err != nil || id == nil {
		return results
	}

	if s.isPlatformAdmin(id) {
		for path := range results {
			results[path] = true
		}
		return results
	}

	templates, err := s.store.ListRouteTemplates(ctx)
	if err != nil {
		s.metrics.StoreErrorsTotal.Inc()
		s.log.WithError(err).Warn("route template listing failed, denying all")
		return results
	}

	for _, path := range paths {
		results[path] = s.decideRoute(ctx, id, path, templates)
	}
	return results
}

// UpdatePermission grants or revokes a per-user override. The call is
// idempotent, always audited, and always invalidates the user's cached
// decisions. Validation and store errors propagate.
func (s *Service) UpdatePermission(ctx context.Context, upd PermissionUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	var opErr error
	if upd.Granted {
		opErr = s.store.UpsertUserGrant(ctx, upd.UserID, upd.Resource, upd.Action)
	} else {
		opErr = s.store.DeleteUserGrant(ctx, upd.UserID, upd.Resource, upd.Action)
	}

	// Mutations are audited unconditionally, success or failure, and the
	// audit write can never block the outcome.
	s.auditMutation(ctx, upd, opErr == nil)

	s.cache.ClearUser(ctx, upd.UserID)

	if opErr != nil {
		return fmt.Errorf("failed to update permission %s for user %s: %w",
			Permission{Resource: upd.Resource, Action: upd.Action}.String(), upd.UserID, opErr)
	}
	return nil
}

// BulkUpdatePermissions applies each update independently through
// UpdatePermission. A failing update does not stop the rest; all errors are
// joined and returned.
func (s *Service) BulkUpdatePermissions(ctx context.Context, updates []PermissionUpdate) error {
	var errs []error
	for _, upd := range updates {
		if err := s.UpdatePermission(ctx, upd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearCache drops every cached decision.
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
}

// ClearUserCache drops cached decisions for one user.
func (s *Service) ClearUserCache(ctx context.Context, userID string) {
	s.cache.ClearUser(ctx, userID)
}

// SwitchTenant clears the whole cache (prior decisions are meaningless in
// the new tenant context) and records the tenant for subsequent audit
// entries.
func (s *Service) SwitchTenant(ctx context.Context, tenantID string) {
	s.cache.Clear(ctx)

	s.mu.Lock()
	s.tenantID = tenantID
	s.mu.Unlock()

	s.log.WithField("tenant_id", tenantID).Info("switched tenant context")
}

// decidePermission runs the platform-admin short-circuit, the cache lookup
// and, on a miss, a single store query. Concurrent misses for the same key
// are collapsed; a store error denies without caching.
func (s *Service) decidePermission(ctx context.Context, id *identity.Identity, perm Permission) bool {
	if s.isPlatformAdmin(id) {
		return true
	}

	key := PermissionKey(id.UserID, perm)
	if allowed, ok := s.cache.Get(ctx, key); ok {
		s.metrics.CacheHitsTotal.Inc()
		return allowed
	}
	s.metrics.CacheMissesTotal.Inc()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		granted, err := s.store.HasGrant(ctx, id.UserID, id.Role, perm.Resource, perm.Action)
		if err != nil {
			return false, err
		}
		s.cache.Set(ctx, key, granted)
		return granted, nil
	})
	if err != nil {
		s.metrics.StoreErrorsTotal.Inc()
		s.log.WithError(err).WithField("permission", perm.String()).Warn("grant query failed, denying access")
		return false
	}
	return v.(bool)
}

// decideRoute resolves path to a template and checks the route permission.
// templates, when non-nil, is a shared listing used both for exact matching
// and for the pattern matcher; otherwise the store is consulted directly.
func (s *Service) decideRoute(ctx context.Context, id *identity.Identity, path string, templates []string) bool {
	if s.isPlatformAdmin(id) {
		return true
	}

	key := RouteKey(id.UserID, path)
	if allowed, ok := s.cache.Get(ctx, key); ok {
		s.metrics.CacheHitsTotal.Inc()
		return allowed
	}
	s.metrics.CacheMissesTotal.Inc()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		template, err := s.resolveTemplate(ctx, path, templates)
		if err != nil {
			return false, err
		}
		if template == "" {
			// No route registered for this path. Distinct from "found but
			// denied" for callers of the matcher, identical for decisions.
			s.cache.Set(ctx, key, false)
			return false, nil
		}

		allowed, err := s.store.RouteAllowed(ctx, template, id.Role)
		if err != nil {
			return false, err
		}
		s.cache.Set(ctx, key, allowed)
		return allowed, nil
	})
	if err != nil {
		s.metrics.StoreErrorsTotal.Inc()
		s.log.WithError(err).WithField("path", path).Warn("route query failed, denying access")
		return false
	}
	return v.(bool)
}

// resolveTemplate finds the template for a concrete path: exact match first,
// then the pattern matcher. Returns empty when no template covers the path.
func (s *Service) resolveTemplate(ctx context.Context, path string, templates []string) (string, error) {
	if templates != nil {
		for _, tmpl := range templates {
			if tmpl == path {
				return tmpl, nil
			}
		}
	} else {
		exact, err := s.store.RouteByPath(ctx, path)
		if err != nil {
			return "", err
		}
		if exact != "" {
			return exact, nil
		}

		templates, err = s.store.ListRouteTemplates(ctx)
		if err != nil {
			return "", err
		}
	}

	if tmpl, ok := s.matcher.Match(path, templates); ok {
		return tmpl, nil
	}
	return "", nil
}

// isPlatformAdmin applies the claim flag and the configured legacy email
// fallback. Must run before any cache or store interaction.
func (s *Service) isPlatformAdmin(id *identity.Identity) bool {
	if id.PlatformAdmin {
		return true
	}
	if len(s.adminEmails) == 0 || id.Email == "" {
		return false
	}
	_, ok := s.adminEmails[strings.ToLower(id.Email)]
	return ok
}

func (s *Service) currentTenant(id *identity.Identity) string {
	s.mu.RLock()
	tenant := s.tenantID
	s.mu.RUnlock()
	if tenant != "" {
		return tenant
	}
	return id.TenantID
}

func (s *Service) auditDecision(ctx context.Context, id *identity.Identity, kind audit.Kind, resource, action, path string, allowed bool) {
	if !s.auditReads {
		return
	}
	result := allowed
	_ = s.sink.Record(ctx, &audit.Entry{
		ActorUserID:    id.UserID,
		ActionKind:     kind,
		ResourceType:   resource,
		ResourceAction: action,
		ResourceID:     path,
		Result:         &result,
		TenantID:       s.currentTenant(id),
	})
}

func (s *Service) auditMutation(ctx context.Context, upd PermissionUpdate, succeeded bool) {
	entry := &audit.Entry{
		ActionKind:     audit.KindPermissionUpdate,
		ResourceType:   upd.Resource,
		ResourceAction: upd.Action,
		ResourceID:     upd.UserID,
		Result:         &succeeded,
		Changes: map[string]interface{}{
			"user_id":  upd.UserID,
			"resource": upd.Resource,
			"action":   upd.Action,
			"granted":  upd.Granted,
		},
	}

	if id, err := s.resolver.Resolve(ctx); err == nil && id != nil {
		entry.ActorUserID = id.UserID
		entry.TenantID = s.currentTenant(id)
	}

	_ = s.sink.Record(ctx, entry)
}
