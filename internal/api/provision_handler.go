package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/jmcnally/provisor/internal/directory"
	"github.com/jmcnally/provisor/internal/fieldcfg"
	"github.com/jmcnally/provisor/internal/linkmap"
	"github.com/jmcnally/provisor/internal/metrics"
	"github.com/jmcnally/provisor/internal/password"
	"github.com/jmcnally/provisor/internal/selection"
	"github.com/jmcnally/provisor/internal/validation"
)

// provisionHandler groups the selection engine, password generation,
// validation rule, and user provisioning HTTP handlers.
type provisionHandler struct {
	fieldConfigs *fieldcfg.Store
	mappings     *linkmap.Store
	directory    *directory.Client
	audit        *auditor
	metrics      *metrics.Metrics
}

func newProvisionHandler(fieldConfigs *fieldcfg.Store, mappings *linkmap.Store, dir *directory.Client, audit *auditor, m *metrics.Metrics) *provisionHandler {
	return &provisionHandler{
		fieldConfigs: fieldConfigs,
		mappings:     mappings,
		directory:    dir,
		audit:        audit,
		metrics:      m,
	}
}

// reconcileRequest carries the operator's current form state plus the
// action that changed it. The selected sets are derived server-side and
// never accepted from the client.
type reconcileRequest struct {
	Department   string   `json:"department"`
	EmployeeType string   `json:"employeeType"`
	ManualApps   []string `json:"manualApps"`
	ManualGroups []string `json:"manualGroups"`

	Action struct {
		Op    string `json:"op"`
		Value string `json:"value"`
	} `json:"action"`
}

type reconcileResponse struct {
	Department      string   `json:"department"`
	EmployeeType    string   `json:"employeeType"`
	ManualApps      []string `json:"manualApps"`
	ManualGroups    []string `json:"manualGroups"`
	SelectedApps    []string `json:"selectedApps"`
	SelectedGroups  []string `json:"selectedGroups"`
	LinkageDegraded bool     `json:"linkageDegraded"`
}

// Reconcile handles POST /api/v1/tenants/{tenant}/selection/reconcile.
func (h *provisionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())

	var req reconcileRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	configs, err := h.fieldConfigs.Load(r.Context(), t.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load field configurations")
		return
	}

	rec, degraded := h.buildReconciler(r.Context(), t.Slug, configs)

	state := selection.NewState()
	state.ManualApps = toSet(req.ManualApps)
	state.ManualGroups = toSet(req.ManualGroups)
	state.CurrentDepartment = req.Department
	state.CurrentEmployeeType = req.EmployeeType
	rec.Recompute(state)

	switch req.Action.Op {
	case "setDepartment":
		rec.SetDepartment(state, req.Action.Value)
	case "setEmployeeType":
		rec.SetEmployeeType(state, req.Action.Value)
	case "toggleApp":
		rec.ToggleApp(state, req.Action.Value)
	case "toggleGroup":
		rec.ToggleGroup(state, req.Action.Value)
	case "", "recompute":
		// Baseline recompute already done.
	default:
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "unknown reconcile action")
		return
	}

	h.metrics.ReconcileOpsTotal.Inc()

	writeJSON(w, http.StatusOK, reconcileResponse{
		Department:      state.CurrentDepartment,
		EmployeeType:    state.CurrentEmployeeType,
		ManualApps:      sortedSlice(state.ManualApps),
		ManualGroups:    sortedSlice(state.ManualGroups),
		SelectedApps:    sortedSlice(state.SelectedApps),
		SelectedGroups:  sortedSlice(state.SelectedGroups),
		LinkageDegraded: degraded,
	})
}

// GeneratePassword handles POST /api/v1/tenants/{tenant}/password/generate.
func (h *provisionHandler) GeneratePassword(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())

	configs, err := h.fieldConfigs.Load(r.Context(), t.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load field configurations")
		return
	}

	policy, ok := configs[fieldcfg.KeyPassword].(*fieldcfg.PasswordConfig)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "password policy unavailable")
		return
	}
	if !policy.ShowGenerateButton {
		writeError(w, http.StatusConflict, "generation_disabled", "password generation is disabled for this tenant")
		return
	}

	pw, err := password.Generate(policy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to generate password")
		return
	}

	h.metrics.PasswordsGeneratedTotal.Inc()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"password":     pw,
		"targetLength": policy.TargetLength,
	})
}

// ValidationRules handles GET /api/v1/tenants/{tenant}/validation-rules.
func (h *provisionHandler) ValidationRules(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())

	configs, err := h.fieldConfigs.Load(r.Context(), t.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load field configurations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": validation.Build(configs),
	})
}

// provisionUserRequest is the new-user submission from the console form.
type provisionUserRequest struct {
	Values       map[fieldcfg.FieldKey]string `json:"values"`
	EmailDomain  string                       `json:"emailDomain,omitempty"`
	ManualApps   []string                     `json:"manualApps"`
	ManualGroups []string                     `json:"manualGroups"`

	SendActivationEmail bool `json:"sendActivationEmail"`
}

// ProvisionUser handles POST /api/v1/tenants/{tenant}/users. Validation
// failures are returned as 422 and never reach the tenant directory.
func (h *provisionHandler) ProvisionUser(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())

	var req provisionUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.Values == nil {
		req.Values = make(map[fieldcfg.FieldKey]string)
	}

	configs, err := h.fieldConfigs.Load(r.Context(), t.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load field configurations")
		return
	}

	email := h.composeEmail(configs, req.Values[fieldcfg.KeyEmailUsername], req.EmailDomain)

	// Derive the final selected sets the same way the form does: manual
	// picks plus attribute linkage at the moment of submission.
	rec, degraded := h.buildReconciler(r.Context(), t.Slug, configs)
	state := selection.NewState()
	state.ManualApps = toSet(req.ManualApps)
	state.ManualGroups = toSet(req.ManualGroups)
	state.CurrentDepartment = req.Values[fieldcfg.KeyDepartment]
	state.CurrentEmployeeType = req.Values[fieldcfg.KeyEmployeeType]
	rec.Recompute(state)

	if failures := h.validate(configs, req, email, state); len(failures) > 0 {
		h.metrics.IncProvisionRequest("validation_failed")
		writeValidationError(w, failures)
		return
	}

	dirReq := directory.ProvisionRequest{
		FirstName:           req.Values[fieldcfg.KeyFirstName],
		LastName:            req.Values[fieldcfg.KeyLastName],
		Email:               email,
		Password:            req.Values[fieldcfg.KeyPassword],
		Title:               req.Values[fieldcfg.KeyTitle],
		Manager:             req.Values[fieldcfg.KeyManager],
		Department:          state.CurrentDepartment,
		EmployeeType:        state.CurrentEmployeeType,
		Groups:              sortedSlice(state.SelectedGroups),
		Applications:        sortedSlice(state.SelectedApps),
		SendActivationEmail: req.SendActivationEmail,
	}

	ep := directory.Endpoint{BaseURL: t.DirectoryURL, Token: t.DirectoryToken}

	start := time.Now()
	result, err := h.directory.ProvisionUser(r.Context(), ep, dirReq)
	h.metrics.ProvisionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		h.metrics.IncProvisionRequest("error")
		h.audit.record(r, t.Slug, "provision", "user", email, nil, false)
		if errors.Is(err, directory.ErrUpstream) {
			writeError(w, http.StatusBadGateway, "upstream_error", "tenant directory rejected the provisioning request")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to provision user")
		return
	}

	h.metrics.IncProvisionRequest("success")
	h.audit.record(r, t.Slug, "provision", "user", result.UserID,
		map[string]any{"email": email, "apps": len(dirReq.Applications), "groups": len(dirReq.Groups)}, true)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"userId":          result.UserID,
		"status":          result.Status,
		"selectedApps":    dirReq.Applications,
		"selectedGroups":  dirReq.Groups,
		"linkageDegraded": degraded,
	})
}

// validate runs the dynamic rules against the submission. List-valued
// fields are checked by presence; the boolean activation flag always has a
// value.
func (h *provisionHandler) validate(configs map[fieldcfg.FieldKey]fieldcfg.Config, req provisionUserRequest, email string, state *selection.State) map[string]string {
	rules := validation.Build(configs)

	values := make(map[fieldcfg.FieldKey]string, len(rules))
	for k, v := range req.Values {
		values[k] = v
	}
	values[fieldcfg.KeyEmailUsername] = email
	values[fieldcfg.KeyApps] = presence(len(state.SelectedApps))
	values[fieldcfg.KeyGroups] = presence(len(state.SelectedGroups))
	values[fieldcfg.KeySendActivationEmail] = strconv.FormatBool(req.SendActivationEmail)

	failures := validation.ValidateAll(rules, values)
	if len(failures) == 0 {
		return nil
	}

	out := make(map[string]string, len(failures))
	for key, msg := range failures {
		h.metrics.IncValidationFailure(string(key))
		out[string(key)] = msg
	}
	return out
}

// composeEmail joins the email username with the chosen domain, defaulting
// to the tenant's first configured domain.
func (h *provisionHandler) composeEmail(configs map[fieldcfg.FieldKey]fieldcfg.Config, username, domain string) string {
	if username == "" {
		return ""
	}
	if domain == "" {
		if ec, ok := configs[fieldcfg.KeyEmailUsername].(*fieldcfg.EmailConfig); ok && len(ec.Domains) > 0 {
			domain = ec.Domains[0]
		}
	}
	if domain == "" {
		return username
	}
	return username + "@" + domain
}

// buildReconciler assembles the selection reconciler for a tenant. A
// mapping fetch failure degrades linkage to empty indexes instead of
// failing the request.
func (h *provisionHandler) buildReconciler(ctx context.Context, slug string, configs map[fieldcfg.FieldKey]fieldcfg.Config) (*selection.Reconciler, bool) {
	department, _ := configs[fieldcfg.KeyDepartment].(*fieldcfg.SelectConfig)
	employeeType, _ := configs[fieldcfg.KeyEmployeeType].(*fieldcfg.SelectConfig)

	byFamily, err := h.mappings.ListAll(ctx, slug)
	if err != nil {
		h.metrics.LinkageDegradedTotal.Inc()
		return selection.NewReconciler(linkmap.IndexSet{}, department, employeeType), true
	}

	return selection.NewReconciler(linkmap.BuildIndexSet(byFamily), department, employeeType), false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it != "" {
			set[it] = struct{}{}
		}
	}
	return set
}

func sortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func presence(n int) string {
	if n > 0 {
		return "present"
	}
	return ""
}
