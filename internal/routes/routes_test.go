package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bohemiyan/governance"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret     = []byte("test-secret")
	callbackSecret = []byte("provider-secret")
)

type testServer struct {
	app   *fiber.App
	svc   *governance.Service
	store *governance.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, Options{JWTSecret: testSecret, CallbackSecret: callbackSecret})
}

func newTestServerWith(t *testing.T, opts Options) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := governance.NewMetrics(reg)
	require.NoError(t, err)

	store := governance.NewMemoryStore()
	svc, err := governance.NewService(governance.Config{Store: store, Metrics: metrics, EnableAuditLogging: true})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	app := fiber.New()
	opts.Gatherer = reg
	Setup(app, svc, opts)
	return &testServer{app: app, svc: svc, store: store}
}

func token(t *testing.T, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

// do sends a JSON request as subject (anonymous when empty) and decodes the
// response body into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path, subject string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if subject != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token(t, subject))
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func providerToken(t *testing.T, secret []byte, orderRef string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   orderRef,
		Audience:  jwt.ClaimStrings{CallbackAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, err := tok.SignedString(secret)
	require.NoError(t, err)
	return signed
}

// callback posts a provider callback for orderRef, authenticated with bearer
// when it is non-empty.
func (s *testServer) callback(t *testing.T, orderRef, outcome, bearer string, body interface{}) int {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/signatures/"+orderRef+"/"+outcome, bytes.NewReader(b))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

type problem struct {
	Type   string `json:"type"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (s *testServer) foundation(t *testing.T, owner string) governance.Foundation {
	t.Helper()
	var f governance.Foundation
	status := s.do(t, http.MethodPost, "/api/v1/foundations", owner, map[string]string{"name": "Riverside Trust"}, &f)
	require.Equal(t, http.StatusCreated, status)
	return f
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil, nil))

	f := s.foundation(t, "owner")
	s.do(t, http.MethodGet, "/api/v1/foundations/"+f.ID, "owner", nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "governance_authorization_decisions_total")
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	var p problem
	status := s.do(t, http.MethodGet, "/api/v1/me/pending-actions", "", nil, &p)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", p.Type)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me/pending-actions", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-jwt")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "owner"})
	signed, err := forged.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me/pending-actions", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signed)
	resp, err = s.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestFoundationAccess(t *testing.T) {
	s := newTestServer(t)
	f := s.foundation(t, "owner")

	var got governance.Foundation
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/foundations/"+f.ID, "owner", nil, &got))
	assert.Equal(t, "owner", got.OwnerID)

	var p problem
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/foundations/"+f.ID, "stranger", nil, &p))
	assert.Equal(t, "no tenant access", p.Detail)

	var m governance.Membership
	status := s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members", "owner", map[string]interface{}{
		"principal_id": "board",
		"role":         "board_member",
	}, &m)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, m.Permissions.Has(governance.ApproveExpenses))

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members", "owner", map[string]interface{}{
		"principal_id": "board",
		"role":         "member",
	}, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members", "owner", map[string]interface{}{
		"principal_id": "x",
		"role":         "member",
		"permissions":  []string{"launch_rockets"},
	}, nil))

	p = problem{}
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/v1/foundations/"+f.ID, "board", nil, &p))
	assert.Equal(t, "owner required", p.Detail)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members", "board", map[string]interface{}{
		"principal_id": "friend",
		"role":         "member",
	}, nil))

	var results struct {
		Results []governance.AuthorizationResult `json:"results"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/authorize", "board", map[string]interface{}{
		"policies": []string{"expenses.approve", "members.manage"},
	}, &results))
	require.Len(t, results.Results, 2)
	assert.True(t, results.Results[0].Decision.Allowed)
	assert.False(t, results.Results[1].Decision.Allowed)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/foundations/"+f.ID+"/members/board", "owner", nil, nil))
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodDelete, "/api/v1/foundations/"+f.ID+"/members/owner", "owner", nil, nil))
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/foundations/"+f.ID, "owner", nil, nil))
}

func TestWorkflowLifecycle(t *testing.T) {
	s := newTestServer(t)
	f := s.foundation(t, "owner")
	for _, id := range []string{"treasurer", "chair"} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members", "owner", map[string]interface{}{
			"principal_id": id,
			"role":         "board_member",
		}, nil))
	}

	var wf governance.Workflow
	status := s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/workflows", "owner", map[string]interface{}{
		"subject": map[string]string{"type": "expense", "id": "exp-1", "title": "Roof repair", "originator_id": "owner"},
		"kind":    "approval",
		"steps": []map[string]string{
			{"assignee_id": "treasurer", "action": "approve"},
			{"assignee_id": "chair", "action": "sign"},
		},
	}, &wf)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, wf.Steps, 2)

	var pending struct {
		Steps []governance.Step `json:"steps"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/me/pending-actions", "treasurer", nil, &pending))
	require.Len(t, pending.Steps, 1)
	assert.Equal(t, wf.Steps[0].ID, pending.Steps[0].ID)

	stepPath := "/api/v1/workflows/" + wf.ID + "/steps/"
	var p problem
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, stepPath+wf.Steps[0].ID+"/process", "chair", map[string]string{"action": "approve"}, &p))
	assert.Equal(t, "not assignee", p.Detail)

	var res governance.StepResult
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, stepPath+wf.Steps[0].ID+"/process", "treasurer", map[string]string{"action": "approve"}, &res))
	assert.Equal(t, governance.WorkflowInProgress, res.Workflow.Status)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, stepPath+wf.Steps[0].ID+"/process", "treasurer", map[string]string{"action": "approve"}, nil))

	p = problem{}
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, stepPath+wf.Steps[1].ID+"/process", "chair", map[string]string{"action": "sign"}, &p))
	assert.Equal(t, "signature not verified", p.Detail)

	var sess governance.SignatureSession
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, stepPath+wf.Steps[1].ID+"/signature", "chair", nil, &sess))
	assert.Equal(t, governance.SessionPending, sess.Status)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/signatures/"+sess.OrderRef, "treasurer", nil, nil))
	provider := providerToken(t, callbackSecret, sess.OrderRef)
	require.Equal(t, http.StatusOK, s.callback(t, sess.OrderRef, "complete", provider, map[string]interface{}{
		"completion_data": map[string]string{"signature": "base64-sig"},
	}))
	assert.Equal(t, http.StatusConflict, s.callback(t, sess.OrderRef, "cancel", provider, nil))

	res = governance.StepResult{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, stepPath+wf.Steps[1].ID+"/process", "chair", map[string]string{"action": "sign"}, &res))
	assert.Equal(t, governance.WorkflowCompleted, res.Workflow.Status)
	require.NotNil(t, res.Step.SignatureArtifact)
	assert.Equal(t, "base64-sig", *res.Step.SignatureArtifact)

	var got governance.Workflow
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/workflows/"+wf.ID, "chair", nil, &got))
	assert.Equal(t, governance.WorkflowCompleted, got.Status)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/workflows/"+wf.ID, "stranger", nil, nil))

	var audit struct {
		Entries []governance.AuditEntry `json:"entries"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/foundations/"+f.ID+"/audit?action=workflow.status", "owner", nil, &audit))
	require.Len(t, audit.Entries, 2)
	assert.Equal(t, "completed", audit.Entries[0].NewValues["status"])
	assert.Equal(t, "chair", audit.Entries[0].ActorID)
}

func TestReassignAndDeleteWorkflow(t *testing.T) {
	s := newTestServer(t)
	f := s.foundation(t, "owner")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members", "owner", map[string]interface{}{
		"principal_id": "clerk",
		"role":         "member",
	}, nil))

	var wf governance.Workflow
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/workflows", "clerk", map[string]interface{}{
		"subject": map[string]string{"type": "document", "id": "doc-1", "originator_id": "clerk"},
		"kind":    "review",
		"steps":   []map[string]string{{"assignee_id": "owner", "action": "review"}},
	}, &wf))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/workflows", "clerk", map[string]interface{}{
		"subject": map[string]string{"type": "document", "id": "doc-2", "originator_id": "clerk"},
		"kind":    "review",
		"steps":   []map[string]string{},
	}, nil))

	var step governance.Step
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/v1/workflows/"+wf.ID+"/steps/"+wf.Steps[0].ID+"/assignee", "clerk",
		map[string]string{"assignee_id": "clerk"}, &step))
	assert.Equal(t, "clerk", step.AssigneeID)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members", "owner", map[string]interface{}{
		"principal_id": "viewer",
		"role":         "viewer",
	}, nil))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/v1/workflows/"+wf.ID, "viewer", nil, nil))
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/workflows/"+wf.ID, "clerk", nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/workflows/"+wf.ID, "clerk", nil, nil))
}

func TestSetGlobalRole(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.SavePrincipal(t.Context(), &governance.Principal{ID: "root", GlobalRole: governance.GlobalRoleAdmin}))

	body := map[string]string{"global_role": "admin"}
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/api/v1/principals/alice/global-role", "bob", body, nil))

	var p governance.Principal
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/v1/principals/alice/global-role", "root", body, &p))
	assert.Equal(t, governance.GlobalRoleAdmin, p.GlobalRole)

	f := s.foundation(t, "owner")
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/foundations/"+f.ID, "alice", nil, nil))
}

func TestSignatureCallbacksRequireProviderToken(t *testing.T) {
	s := newTestServer(t)

	var sess governance.SignatureSession
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/signatures", "mallory", map[string]string{"kind": "signature"}, &sess))
	other, err := s.svc.Signatures.Initiate(t.Context(), "someone-else", governance.SessionSignature)
	require.NoError(t, err)

	forged := map[string]interface{}{"completion_data": map[string]string{"signature": "forged"}}
	assert.Equal(t, http.StatusUnauthorized, s.callback(t, sess.OrderRef, "complete", "", forged))
	assert.Equal(t, http.StatusUnauthorized, s.callback(t, sess.OrderRef, "complete", token(t, "mallory"), forged))
	assert.Equal(t, http.StatusUnauthorized, s.callback(t, sess.OrderRef, "complete", providerToken(t, testSecret, sess.OrderRef), forged))
	assert.Equal(t, http.StatusUnauthorized, s.callback(t, sess.OrderRef, "complete", providerToken(t, callbackSecret, other.OrderRef), forged))

	got, err := s.svc.Signatures.CheckStatus(t.Context(), sess.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, governance.SessionPending, got.Status)

	assert.Equal(t, http.StatusOK, s.callback(t, sess.OrderRef, "fail", providerToken(t, callbackSecret, sess.OrderRef),
		map[string]string{"reason": "user declined"}))
	got, err = s.svc.Signatures.CheckStatus(t.Context(), sess.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, governance.SessionFailed, got.Status)
}

func TestSignatureCallbacksDisabledWithoutSecret(t *testing.T) {
	s := newTestServerWith(t, Options{JWTSecret: testSecret})

	sess, err := s.svc.Signatures.Initiate(t.Context(), "chair", governance.SessionSignature)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, s.callback(t, sess.OrderRef, "complete", providerToken(t, callbackSecret, sess.OrderRef), nil))
	got, err := s.svc.Signatures.CheckStatus(t.Context(), sess.OrderRef)
	require.NoError(t, err)
	assert.Equal(t, governance.SessionPending, got.Status)
}

func TestReassignStepOfAnotherFoundation(t *testing.T) {
	s := newTestServer(t)
	a := s.foundation(t, "alice")
	b := s.foundation(t, "bob")

	create := func(owner, foundationID string) governance.Workflow {
		var wf governance.Workflow
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/foundations/"+foundationID+"/workflows", owner, map[string]interface{}{
			"subject": map[string]string{"type": "grant", "id": "g-" + owner, "originator_id": owner},
			"kind":    "approval",
			"steps":   []map[string]string{{"assignee_id": owner, "action": "approve"}},
		}, &wf))
		return wf
	}
	wfA := create("alice", a.ID)
	wfB := create("bob", b.ID)
	victim := wfB.Steps[0].ID

	var p problem
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/v1/workflows/"+wfA.ID+"/steps/"+victim+"/assignee", "alice",
		map[string]string{"assignee_id": "alice"}, &p))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/v1/workflows/"+wfB.ID+"/steps/"+victim+"/process", "alice",
		map[string]string{"action": "approve"}, nil))

	var got governance.Workflow
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/workflows/"+wfB.ID, "bob", nil, &got))
	assert.Equal(t, "bob", got.Steps[0].AssigneeID)
	assert.Equal(t, governance.WorkflowPending, got.Status)
}

func TestDeniedRequestsLeaveWorkflowUntouched(t *testing.T) {
	s := newTestServer(t)
	f := s.foundation(t, "owner")
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members", "owner", map[string]interface{}{
		"principal_id": "viewer",
		"role":         "viewer",
	}, nil))

	var wf governance.Workflow
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/workflows", "owner", map[string]interface{}{
		"subject": map[string]string{"type": "expense", "id": "exp-9", "originator_id": "owner"},
		"kind":    "approval",
		"steps":   []map[string]string{{"assignee_id": "owner", "action": "approve"}},
	}, &wf))
	before, err := s.svc.Workflows.GetWorkflow(t.Context(), wf.ID)
	require.NoError(t, err)

	stepPath := "/api/v1/workflows/" + wf.ID + "/steps/" + wf.Steps[0].ID
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/workflows", "viewer", map[string]interface{}{
		"subject": map[string]string{"type": "expense", "id": "exp-10", "originator_id": "viewer"},
		"kind":    "approval",
		"steps":   []map[string]string{{"assignee_id": "viewer", "action": "approve"}},
	}, nil))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, stepPath+"/assignee", "viewer", map[string]string{"assignee_id": "viewer"}, nil))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, stepPath+"/process", "viewer", map[string]string{"action": "reject"}, nil))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/v1/workflows/"+wf.ID, "viewer", nil, nil))

	after, err := s.svc.Workflows.GetWorkflow(t.Context(), wf.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	workflows, err := s.svc.Workflows.ListWorkflows(t.Context(), governance.WorkflowFilter{FoundationID: f.ID})
	require.NoError(t, err)
	assert.Len(t, workflows, 1)

	entries, err := s.svc.Audit.Query(t.Context(), governance.AuditFilter{FoundationID: f.ID, TargetTable: "workflow_steps"})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBulkAddMembersEndpoint(t *testing.T) {
	s := newTestServer(t)
	f := s.foundation(t, "owner")

	var out struct {
		Results []bulkMemberResult `json:"results"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members/bulk", "owner", map[string]interface{}{
		"members": []map[string]string{
			{"principal_id": "a", "role": "member"},
			{"principal_id": "owner", "role": "viewer"},
		},
	}, &out))
	require.Len(t, out.Results, 2)
	assert.True(t, out.Results[0].Added)
	assert.False(t, out.Results[1].Added)
	assert.NotEmpty(t, out.Results[1].Error)

	m, err := s.svc.GetMember(t.Context(), f.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, governance.RoleMember, m.Role)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members/bulk", "owner",
		map[string]interface{}{"members": []map[string]string{}}, nil))
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/v1/foundations/"+f.ID+"/members/bulk", "a",
		map[string]interface{}{"members": []map[string]string{{"principal_id": "b", "role": "member"}}}, nil))
}

func TestHealthReportsCacheStats(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := governance.NewRedisMembershipCache(client, "gov:", 10*time.Minute)
	require.NoError(t, cache.Set(t.Context(), governance.Membership{FoundationID: "f1", PrincipalID: "p1", Role: governance.RoleMember}))

	s := newTestServerWith(t, Options{JWTSecret: testSecret, Cache: cache})

	var health struct {
		Status string                 `json:"status"`
		Cache  map[string]interface{} `json:"cache"`
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "gov:", health.Cache["prefix"])
	assert.EqualValues(t, 1, health.Cache["cache_keys_count"])
}
