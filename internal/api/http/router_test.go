package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "credibridge-backend/internal/api/http"
	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/metrics"
	"credibridge-backend/internal/service"
)

type testServer struct {
	t      *testing.T
	server *httptest.Server
	ledger *ledger.Ledger
	bank   *bank.MockBank
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	l := ledger.New()
	mb := bank.NewMockBank()
	m := metrics.New()
	settlement := service.NewSettlementService(l, mb, service.NewLogAlertService(), m, time.Second)
	svc := &service.Services{
		Settlement:     settlement,
		MoneyRequest:   service.NewMoneyRequestService(l, settlement),
		Member:         service.NewMemberService(l, mb, domain.Cents(50000)),
		Family:         service.NewFamilyService(l),
		Merchant:       service.NewMerchantService(l, mb),
		Reconciliation: service.NewReconciliationService(l, m),
	}
	srv := httptest.NewServer(api.NewRouter(svc, m))
	t.Cleanup(srv.Close)
	return &testServer{t: t, server: srv, ledger: l, bank: mb}
}

func (s *testServer) do(method, path, body string) (int, []byte) {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.server.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp.StatusCode, data
}

func (s *testServer) decode(data []byte, v any) {
	s.t.Helper()
	require.NoError(s.t, json.Unmarshal(data, v), string(data))
}

// family creates a family with two registered members and returns their ids.
func (s *testServer) family() (familyID, a, b string) {
	s.t.Helper()
	status, data := s.do(http.MethodPost, "/api/v1/families", `{"name":"Chinconyaz"}`)
	require.Equal(s.t, http.StatusCreated, status, string(data))
	var family domain.Family
	s.decode(data, &family)

	ids := make([]string, 0, 2)
	for _, name := range []string{"Chinmay", "Aiyaz"} {
		status, data := s.do(http.MethodPost, "/api/v1/members", `{"first_name":"`+name+`","last_name":"Test"}`)
		require.Equal(s.t, http.StatusCreated, status, string(data))
		var m domain.Member
		s.decode(data, &m)

		status, data = s.do(http.MethodPost, "/api/v1/families/"+family.ID+"/members", `{"member_id":"`+m.ID+`"}`)
		require.Equal(s.t, http.StatusOK, status, string(data))
		ids = append(ids, m.ID)
	}
	return family.ID, ids[0], ids[1]
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)

	status, data := s.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestRouter_LoanAndRepayment(t *testing.T) {
	s := newTestServer(t)
	familyID, a, b := s.family()

	status, data := s.do(http.MethodPost, "/api/v1/families/"+familyID+"/loans",
		`{"lender_id":"`+a+`","borrower_id":"`+b+`","amount":"200.00","description":"rent"}`)
	require.Equal(t, http.StatusCreated, status, string(data))
	var loan domain.Transaction
	s.decode(data, &loan)
	assert.Equal(t, domain.Cents(20000), loan.Amount)
	assert.Equal(t, domain.TransactionKindLoan, loan.Kind)

	status, data = s.do(http.MethodGet, "/api/v1/members/"+a, "")
	require.Equal(t, http.StatusOK, status)
	var lender domain.Member
	s.decode(data, &lender)
	assert.Equal(t, domain.Cents(30000), lender.Balance)

	t.Run("Borrowers", func(t *testing.T) {
		status, data := s.do(http.MethodGet, "/api/v1/members/"+a+"/borrowers", "")
		require.Equal(t, http.StatusOK, status)
		var borrowers []domain.BorrowerSummary
		s.decode(data, &borrowers)
		require.Len(t, borrowers, 1)
		assert.Equal(t, b, borrowers[0].BorrowerID)
		assert.Equal(t, domain.Cents(20000), borrowers[0].AmountOwed)
	})

	t.Run("OverRepayment", func(t *testing.T) {
		status, data := s.do(http.MethodPost, "/api/v1/debts/resolve",
			`{"borrower_id":"`+b+`","lender_id":"`+a+`","amount":250}`)
		assert.Equal(t, http.StatusUnprocessableEntity, status, string(data))
	})

	t.Run("Repay", func(t *testing.T) {
		status, data := s.do(http.MethodPost, "/api/v1/debts/resolve",
			`{"borrower_id":"`+b+`","lender_id":"`+a+`","amount":120}`)
		require.Equal(t, http.StatusCreated, status, string(data))

		status, data = s.do(http.MethodGet, "/api/v1/members/"+b+"/transactions", "")
		require.Equal(t, http.StatusOK, status)
		var views []domain.TransactionView
		s.decode(data, &views)
		require.Len(t, views, 2)
		assert.Equal(t, "Chinmay Test", views[0].FromName)
		assert.Equal(t, domain.Cents(8000), views[1].FromDebt)
	})
}

func TestRouter_Errors(t *testing.T) {
	s := newTestServer(t)
	familyID, a, b := s.family()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"MalformedJSON", http.MethodPost, "/api/v1/families/" + familyID + "/loans", `{"lender_id":`, http.StatusBadRequest},
		{"UnknownField", http.MethodPost, "/api/v1/families", `{"name":"x","color":"red"}`, http.StatusBadRequest},
		{"SubCentAmount", http.MethodPost, "/api/v1/families/" + familyID + "/loans", `{"lender_id":"` + a + `","borrower_id":"` + b + `","amount":"1.005"}`, http.StatusBadRequest},
		{"ZeroAmount", http.MethodPost, "/api/v1/families/" + familyID + "/loans", `{"lender_id":"` + a + `","borrower_id":"` + b + `","amount":0}`, http.StatusBadRequest},
		{"SelfLoan", http.MethodPost, "/api/v1/families/" + familyID + "/loans", `{"lender_id":"` + a + `","borrower_id":"` + a + `","amount":1}`, http.StatusBadRequest},
		{"UnknownMember", http.MethodGet, "/api/v1/members/ghost", "", http.StatusNotFound},
		{"UnknownRequest", http.MethodGet, "/api/v1/requests/ghost", "", http.StatusNotFound},
		{"NoSuchDebt", http.MethodPost, "/api/v1/debts/resolve", `{"borrower_id":"` + a + `","lender_id":"` + b + `","amount":1}`, http.StatusUnprocessableEntity},
		{"InsufficientBalance", http.MethodPost, "/api/v1/families/" + familyID + "/loans", `{"lender_id":"` + a + `","borrower_id":"` + b + `","amount":"500.01"}`, http.StatusUnprocessableEntity},
		{"MissingAccept", http.MethodPost, "/api/v1/requests/ghost/resolve", `{}`, http.StatusBadRequest},
		{"BadLimit", http.MethodGet, "/api/v1/merchants?limit=ten", "", http.StatusBadRequest},
		{"WrongMethod", http.MethodDelete, "/api/v1/members", "", http.StatusMethodNotAllowed},
		{"WrongMethodOnItem", http.MethodPut, "/api/v1/requests/ghost", "", http.StatusMethodNotAllowed},
		{"UnknownRoute", http.MethodGet, "/api/v1/nowhere", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status, string(data))
		})
	}

	t.Run("SettlementFailed", func(t *testing.T) {
		s.bank.FailNext(bank.OpWithdraw, "", 1)
		status, data := s.do(http.MethodPost, "/api/v1/families/"+familyID+"/loans",
			`{"lender_id":"`+a+`","borrower_id":"`+b+`","amount":10}`)
		assert.Equal(t, http.StatusBadGateway, status, string(data))
	})
}

func TestRouter_RequestsAndReconciliation(t *testing.T) {
	s := newTestServer(t)
	_, a, b := s.family()

	status, data := s.do(http.MethodPost, "/api/v1/requests", `{"from_id":"`+a+`","to_id":"`+b+`","amount":"50.00"}`)
	require.Equal(t, http.StatusCreated, status, string(data))
	var req domain.MoneyRequest
	s.decode(data, &req)

	status, data = s.do(http.MethodGet, "/api/v1/members/"+b+"/requests", "")
	require.Equal(t, http.StatusOK, status)
	var lists struct {
		Sent     []domain.MoneyRequest `json:"sent"`
		Received []domain.MoneyRequest `json:"received"`
	}
	s.decode(data, &lists)
	assert.Len(t, lists.Received, 1)

	// the deposit into a's account fails after b was debited remotely
	s.bank.FailNext(bank.OpDeposit, "", 1)
	status, data = s.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/resolve", `{"accept":true}`)
	require.Equal(t, http.StatusInternalServerError, status, string(data))
	var failure struct {
		Error            string `json:"error"`
		ReconciliationID string `json:"reconciliation_id"`
	}
	s.decode(data, &failure)
	require.NotEmpty(t, failure.ReconciliationID)

	status, data = s.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/resolve", `{"accept":true}`)
	assert.Equal(t, http.StatusInternalServerError, status, string(data))

	status, data = s.do(http.MethodGet, "/api/v1/reconciliations", "")
	require.Equal(t, http.StatusOK, status)
	var open []domain.Reconciliation
	s.decode(data, &open)
	require.Len(t, open, 1)
	assert.Equal(t, failure.ReconciliationID, open[0].ID)

	status, data = s.do(http.MethodPost, "/api/v1/reconciliations/"+failure.ReconciliationID+"/close", `{"note":"refunded"}`)
	require.Equal(t, http.StatusOK, status, string(data))
	status, _ = s.do(http.MethodPost, "/api/v1/reconciliations/"+failure.ReconciliationID+"/close", `{"note":"again"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, data = s.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/resolve", `{"accept":false}`)
	require.Equal(t, http.StatusOK, status, string(data))
	var resolved struct {
		Request     domain.MoneyRequest `json:"request"`
		Transaction *domain.Transaction `json:"transaction"`
	}
	s.decode(data, &resolved)
	assert.Equal(t, domain.RequestStatusDeclined, resolved.Request.Status)
	assert.Nil(t, resolved.Transaction)

	status, _ = s.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/resolve", `{"accept":true}`)
	assert.Equal(t, http.StatusConflict, status)
}

func TestRouter_MerchantsAndMetrics(t *testing.T) {
	s := newTestServer(t)
	_, a, _ := s.family()

	status, data := s.do(http.MethodPost, "/api/v1/merchants", `{"name":"Walmart","category":"Grocery","location":"College Station, TX"}`)
	require.Equal(t, http.StatusCreated, status, string(data))
	var merchant domain.Merchant
	s.decode(data, &merchant)
	assert.NotEmpty(t, merchant.ExternalRef)

	status, data = s.do(http.MethodPost, "/api/v1/merchants/"+merchant.ID+"/payments", `{"member_id":"`+a+`","amount":"19.99"}`)
	require.Equal(t, http.StatusCreated, status, string(data))

	status, data = s.do(http.MethodGet, "/api/v1/merchants?limit=1", "")
	require.Equal(t, http.StatusOK, status)
	var merchants []domain.Merchant
	s.decode(data, &merchants)
	assert.Len(t, merchants, 1)

	status, data = s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), `credibridge_settlements_total{kind="purchase",outcome="success"} 1`)
}
