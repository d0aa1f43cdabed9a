package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propshare/propshare/ledger"
	"github.com/propshare/propshare/models"
	"github.com/propshare/propshare/registry"
	"github.com/propshare/propshare/services"
	"github.com/propshare/propshare/storage"
)

type app struct {
	router  *chi.Mux
	tokens  *ledger.Set
	payment *ledger.Memory

	property *services.PropertyService
	sale     *services.SaleService

	accreditation *registry.Accreditation
	roles         *registry.Roles
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := zap.NewNop()
	store := storage.NewMemory()

	tokens := ledger.NewSet()
	payment := ledger.NewMemory("USDP")
	accreditation := registry.NewAccreditation(store, log)
	roles := registry.NewRoles(store)
	ownership := registry.NewOwnership(store, 64, log)

	property := services.NewPropertyService(store, tokens, roles, log)
	sale := services.NewSaleService(store, tokens, payment, accreditation, ownership, roles, nil, log)
	marketplace := services.NewMarketplaceService(store, tokens, payment, ownership, 250, "platform:treasury", log)
	staking := services.NewStakingService(store, tokens, ownership, services.StakingConfig{
		RewardRateBps:   500,
		FeeBps:          100,
		MinLockDuration: 30 * 24 * time.Hour,
		FeeCollector:    "platform:treasury",
	}, log)
	revenue := services.NewRevenueService(store, tokens, payment, staking, roles, log)
	governance := services.NewGovernanceService(store, tokens, roles, services.GovernanceConfig{
		VotingDelay:       0,
		VotingPeriod:      7 * 24 * time.Hour,
		ExecutionGrace:    30 * 24 * time.Hour,
		ProposalThreshold: models.TokenScale,
		QuorumBps:         1_000,
		MajorityBps:       5_000,
	}, log)

	require.NoError(t, roles.Grant("admin", registry.RoleAdmin))
	require.NoError(t, roles.Grant("op", registry.RoleOperator))

	propertyHandler := NewPropertyHandler(property)
	saleHandler := NewSaleHandler(sale)
	marketplaceHandler := NewMarketplaceHandler(marketplace)
	stakingHandler := NewStakingHandler(staking)
	revenueHandler := NewRevenueHandler(revenue)
	governanceHandler := NewGovernanceHandler(governance)
	registryHandler := NewRegistryHandler(accreditation, roles, ownership)

	r := chi.NewRouter()
	r.Route("/properties", func(r chi.Router) {
		r.Post("/", propertyHandler.RegisterProperty)
		r.Get("/", propertyHandler.ListProperties)
		r.Get("/{id}", propertyHandler.GetProperty)
		r.Put("/{id}/sale", saleHandler.ConfigureSale)
		r.Get("/{id}/sale", saleHandler.SaleInfo)
		r.Post("/{id}/sale/purchase", saleHandler.Purchase)
		r.Post("/{id}/staking/stake", stakingHandler.Stake)
		r.Post("/{id}/revenue/distribute", revenueHandler.Distribute)
	})
	r.Route("/marketplace/listings", func(r chi.Router) {
		r.Post("/", marketplaceHandler.CreateListing)
		r.Get("/{id}", marketplaceHandler.GetListing)
	})
	r.Post("/governance/proposals", governanceHandler.CreateProposal)
	r.Get("/governance/proposals/{id}", governanceHandler.GetProposal)
	r.Post("/governance/proposals/{id}/refresh", governanceHandler.Refresh)
	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/portfolio", registryHandler.Portfolio)
		r.Put("/accreditation", registryHandler.SetAccredited)
	})

	return &app{
		router:        r,
		tokens:        tokens,
		payment:       payment,
		property:      property,
		sale:          sale,
		accreditation: accreditation,
		roles:         roles,
	}
}

func (a *app) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *app) registerProperty(t *testing.T) models.Property {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/properties", map[string]any{
		"caller":      "admin",
		"name":        "12 Beacon St",
		"symbol":      "BCN12",
		"address":     "12 Beacon St, Boston MA",
		"total_value": 5_000_000 * models.PaymentScale,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var prop models.Property
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prop))
	return prop
}

func TestRegisterPropertyEndpoint(t *testing.T) {
	a := newApp(t)
	prop := a.registerProperty(t)
	assert.NotEmpty(t, prop.ID)
	assert.Equal(t, "BCN12", prop.Symbol)

	rec := a.do(t, http.MethodGet, "/properties/"+prop.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/properties/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterPropertyRequiresAdmin(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/properties", map[string]any{
		"caller": "rando", "name": "x", "symbol": "X", "total_value": 1,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPurchaseFlowOverHTTP(t *testing.T) {
	a := newApp(t)
	prop := a.registerProperty(t)

	rec := a.do(t, http.MethodPut, "/properties/"+prop.ID+"/sale", map[string]any{
		"caller":          "op",
		"price_per_token": 1_200_000,
		"max_purchase":    100_000 * models.TokenScale,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPut, "/users/buyer/accreditation", map[string]any{
		"caller": "admin", "accredited": true,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, a.payment.Mint("buyer", 10_000*models.PaymentScale))

	rec = a.do(t, http.MethodPost, "/properties/"+prop.ID+"/sale/purchase", map[string]any{
		"buyer": "buyer", "amount": 1000 * models.TokenScale,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sale models.Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	assert.Equal(t, int64(1000*models.TokenScale), sale.TotalSold)

	rec = a.do(t, http.MethodGet, "/users/buyer/portfolio", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var portfolio registry.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &portfolio))
	assert.Equal(t, int64(1000*models.TokenScale), portfolio.TotalUnits)
}

func TestPurchaseErrorMapping(t *testing.T) {
	a := newApp(t)
	prop := a.registerProperty(t)

	// No sale configured yet: a conflict, not a 500.
	rec := a.do(t, http.MethodPost, "/properties/"+prop.ID+"/sale/purchase", map[string]any{
		"buyer": "buyer", "amount": 1000,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/properties/"+prop.ID+"/sale/purchase", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListingEndpointValidation(t *testing.T) {
	a := newApp(t)
	prop := a.registerProperty(t)

	rec := a.do(t, http.MethodPost, "/marketplace/listings", map[string]any{
		"property_id": prop.ID, "seller": "alice", "amount": 100, "price_per_token": 1_000_000,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(t, http.MethodGet, "/marketplace/listings/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/marketplace/listings/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProposalEndpoint(t *testing.T) {
	a := newApp(t)
	prop := a.registerProperty(t)
	tok, ok := a.tokens.Get(prop.ID)
	require.True(t, ok)
	require.NoError(t, tok.Mint("holder", 10*models.TokenScale))

	rec := a.do(t, http.MethodPost, "/governance/proposals", map[string]any{
		"property_id": prop.ID,
		"proposer":    "holder",
		"title":       "Lobby refresh",
		"description": "Repaint and refurnish the lobby",
		"type":        "IMPROVEMENT",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p models.Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, models.ProposalTypeImprovement, p.Type)

	rec = a.do(t, http.MethodPost, "/governance/proposals", map[string]any{
		"property_id": prop.ID, "proposer": "holder", "title": "x", "type": "NOT_A_TYPE",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshProposalEndpoint(t *testing.T) {
	a := newApp(t)
	prop := a.registerProperty(t)
	tok, ok := a.tokens.Get(prop.ID)
	require.True(t, ok)
	require.NoError(t, tok.Mint("holder", 10*models.TokenScale))

	rec := a.do(t, http.MethodPost, "/governance/proposals", map[string]any{
		"property_id": prop.ID,
		"proposer":    "holder",
		"title":       "Lobby refresh",
		"description": "Repaint and refurnish the lobby",
		"type":        "IMPROVEMENT",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p models.Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	// Voting delay is zero here, so the first refresh lands on ACTIVE.
	rec = a.do(t, http.MethodPost, "/governance/proposals/1/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		ProposalID int64                 `json:"proposal_id"`
		Status     models.ProposalStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, p.ID, resp.ProposalID)
	assert.Equal(t, models.ProposalActive, resp.Status)

	rec = a.do(t, http.MethodPost, "/governance/proposals/not-a-number/refresh", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/governance/proposals/99/refresh", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
