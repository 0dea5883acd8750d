package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds a full application stack with in-memory repos and miniredis
// behind the result cache. This exercises the real HTTP layer, middleware,
// handlers, services, and Redis stores end-to-end.

type testApp struct {
	server      *httptest.Server
	redis       *miniredis.Miniredis
	tokenSvc    ports.TokenService
	walletRepo  *inMemoryWalletRepo
	ledgerRepo  *inMemoryLedgerRepo
	balanceRepo *inMemoryBalanceRepo
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	// Start miniredis
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	resultCache := redisStorage.NewResultCache(rdb)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	// In-memory repos
	walletRepo := newInMemoryWalletRepo()
	ledgerRepo := newInMemoryLedgerRepo()
	balanceRepo := newInMemoryBalanceRepo(walletRepo)
	idempRepo := newInMemoryIdempotencyRepo()
	auditRepo := newInMemoryAuditRepo()
	transactor := newInMemoryTransactor()

	log := logger.New("debug", false)
	auditSvc := service.NewAuditService(auditRepo, log)

	ledgerCfg := config.LedgerConfig{
		MaxTransactionAmount: 0,
		Currencies:           []string{"EGP", "USD", "SAR"},
		ResultCacheTTL:       time.Hour,
	}
	ledgerSvc := service.NewLedgerService(walletRepo, ledgerRepo, balanceRepo, idempRepo, resultCache, transactor, auditSvc, ledgerCfg, log)
	reconSvc := service.NewReconciliationService(walletRepo, ledgerRepo, balanceRepo, transactor, auditSvc, log)

	// Rate limiting stays off here; it has its own middleware tests and would
	// trip on the concurrency scenarios below.
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		ReconSvc:       reconSvc,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server:      server,
		redis:       mr,
		tokenSvc:    tokenSvc,
		walletRepo:  walletRepo,
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

func (a *testApp) token(t *testing.T, principalID uuid.UUID) string {
	t.Helper()
	token, _, err := a.tokenSvc.Generate(principalID)
	require.NoError(t, err)
	return token
}

func (a *testApp) post(t *testing.T, token, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (a *testApp) get(t *testing.T, token, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// decodeData unwraps the {"data": ...} success envelope.
func decodeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "response should carry a data object: %v", envelope)
	return data
}

func decodeDataList(t *testing.T, resp *http.Response) []interface{} {
	t.Helper()
	defer resp.Body.Close()
	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	data, ok := envelope["data"].([]interface{})
	require.True(t, ok, "response should carry a data array: %v", envelope)
	return data
}

func decodeError(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// createWallet creates a wallet owned by the given principal and returns its id.
func (a *testApp) createWallet(t *testing.T, token string, ownerID uuid.UUID, currency string) string {
	t.Helper()
	body := fmt.Sprintf(`{"owner_id":"%s","currency":"%s"}`, ownerID, currency)
	resp := a.post(t, token, "/api/v1/wallets", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	return data["id"].(string)
}

// deposit credits the wallet and returns the response data.
func (a *testApp) deposit(t *testing.T, token, walletID string, amount int64, currency string) map[string]interface{} {
	t.Helper()
	body := fmt.Sprintf(`{"wallet_id":"%s","amount":%d,"currency":"%s","type":"DEPOSIT"}`, walletID, amount, currency)
	resp := a.post(t, token, "/api/v1/transactions", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeData(t, resp)
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_Unauthorized(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := app.get(t, "", "/api/v1/balances")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_CreateWalletAndDeposit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)

	walletID := app.createWallet(t, token, owner, "EGP")

	depData := app.deposit(t, token, walletID, 100000, "EGP")
	assert.Equal(t, "ok", depData["status"])
	assert.Equal(t, float64(100000), depData["new_balance"])
	assert.NotEmpty(t, depData["transaction_id"])

	// Balance projection reflects the deposit
	respBal := app.get(t, token, "/api/v1/balances")
	require.Equal(t, http.StatusOK, respBal.StatusCode)
	balances := decodeDataList(t, respBal)
	require.Len(t, balances, 1)
	bal := balances[0].(map[string]interface{})
	assert.Equal(t, walletID, bal["wallet_id"])
	assert.Equal(t, float64(100000), bal["balance"])
	assert.Equal(t, "EGP", bal["currency"])

	// Ledger history shows exactly one entry
	respTx := app.get(t, token, "/api/v1/wallets/"+walletID+"/transactions")
	require.Equal(t, http.StatusOK, respTx.StatusCode)
	txData := decodeData(t, respTx)
	assert.Equal(t, float64(1), txData["total"])
	items := txData["items"].([]interface{})
	first := items[0].(map[string]interface{})
	assert.Equal(t, "DEPOSIT", first["type"])
	assert.Equal(t, float64(100000), first["amount"])
}

func TestIntegration_CreateWallet_DuplicateReturnsExisting(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)

	firstID := app.createWallet(t, token, owner, "USD")
	secondID := app.createWallet(t, token, owner, "USD")

	assert.Equal(t, firstID, secondID, "repeated creation for the same owner/currency should return the same wallet")
}

func TestIntegration_CreateWallet_UnsupportedCurrency(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)

	resp := app.post(t, token, "/api/v1/wallets", fmt.Sprintf(`{"owner_id":"%s","currency":"JPY"}`, owner))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeError(t, resp)
	assert.Equal(t, "LED_005", body["error_code"])
}

func TestIntegration_IdempotentDeposit_Replay(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)
	walletID := app.createWallet(t, token, owner, "EGP")

	body := fmt.Sprintf(`{"wallet_id":"%s","amount":50000,"currency":"EGP","type":"DEPOSIT","idempotency_key":"dep-replay-001"}`, walletID)

	resp1 := app.post(t, token, "/api/v1/transactions", body)
	require.Equal(t, http.StatusCreated, resp1.StatusCode)
	data1 := decodeData(t, resp1)
	assert.Equal(t, "ok", data1["status"])
	txID := data1["transaction_id"].(string)

	// Same request again: 200, same transaction, no double credit
	resp2 := app.post(t, token, "/api/v1/transactions", body)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	data2 := decodeData(t, resp2)
	assert.Equal(t, "already_processed", data2["status"])
	assert.Equal(t, txID, data2["transaction_id"])
	assert.Equal(t, float64(50000), data2["new_balance"])

	respTx := app.get(t, token, "/api/v1/wallets/"+walletID+"/transactions")
	txData := decodeData(t, respTx)
	assert.Equal(t, float64(1), txData["total"], "replay must not append a second ledger entry")
}

func TestIntegration_Withdrawal_InsufficientBalance(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)
	walletID := app.createWallet(t, token, owner, "EGP")
	app.deposit(t, token, walletID, 10000, "EGP")

	body := fmt.Sprintf(`{"wallet_id":"%s","amount":-10001,"currency":"EGP","type":"WITHDRAWAL"}`, walletID)
	resp := app.post(t, token, "/api/v1/transactions", body)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	errBody := decodeError(t, resp)
	assert.Equal(t, "LED_004", errBody["error_code"])

	// Nothing changed
	respTx := app.get(t, token, "/api/v1/wallets/"+walletID+"/transactions")
	txData := decodeData(t, respTx)
	assert.Equal(t, float64(1), txData["total"])

	respBal := app.get(t, token, "/api/v1/balances")
	balances := decodeDataList(t, respBal)
	assert.Equal(t, float64(10000), balances[0].(map[string]interface{})["balance"])
}

func TestIntegration_Transfer_EndToEnd(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := uuid.New()
	bob := uuid.New()
	aliceToken := app.token(t, alice)
	bobToken := app.token(t, bob)

	aliceWallet := app.createWallet(t, aliceToken, alice, "EGP")
	app.deposit(t, aliceToken, aliceWallet, 100000, "EGP")

	// Bob has no wallet yet; the transfer creates it.
	body := fmt.Sprintf(`{"from_owner_id":"%s","to_owner_id":"%s","amount":30000,"currency":"EGP"}`, alice, bob)
	resp := app.post(t, aliceToken, "/api/v1/transfers", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := decodeData(t, resp)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, float64(70000), data["from_balance"])
	assert.Equal(t, float64(30000), data["to_balance"])
	creditTxID := data["credit_tx_id"].(string)

	// Bob sees the credited balance
	respBal := app.get(t, bobToken, "/api/v1/balances")
	balances := decodeDataList(t, respBal)
	require.Len(t, balances, 1)
	assert.Equal(t, float64(30000), balances[0].(map[string]interface{})["balance"])

	// The debit leg references the credit leg
	respTx := app.get(t, aliceToken, "/api/v1/wallets/"+aliceWallet+"/transactions")
	txData := decodeData(t, respTx)
	items := txData["items"].([]interface{})
	require.Len(t, items, 2)
	debit := items[1].(map[string]interface{})
	assert.Equal(t, "TRANSFER", debit["type"])
	assert.Equal(t, float64(-30000), debit["amount"])
	assert.Equal(t, creditTxID, debit["related_entity_id"])
}

func TestIntegration_Transfer_Replay(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := uuid.New()
	bob := uuid.New()
	token := app.token(t, alice)

	aliceWallet := app.createWallet(t, token, alice, "EGP")
	app.deposit(t, token, aliceWallet, 100000, "EGP")

	body := fmt.Sprintf(`{"from_owner_id":"%s","to_owner_id":"%s","amount":25000,"currency":"EGP","idempotency_key":"xfer-replay-001"}`, alice, bob)

	resp1 := app.post(t, token, "/api/v1/transfers", body)
	require.Equal(t, http.StatusCreated, resp1.StatusCode)
	data1 := decodeData(t, resp1)

	resp2 := app.post(t, token, "/api/v1/transfers", body)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	data2 := decodeData(t, resp2)

	assert.Equal(t, "already_processed", data2["status"])
	assert.Equal(t, data1["debit_tx_id"], data2["debit_tx_id"])
	assert.Equal(t, data1["credit_tx_id"], data2["credit_tx_id"])
	assert.Equal(t, float64(75000), data2["from_balance"], "replay must not move funds again")
}

func TestIntegration_Transfer_SameOwner(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := uuid.New()
	token := app.token(t, alice)

	body := fmt.Sprintf(`{"from_owner_id":"%s","to_owner_id":"%s","amount":1000,"currency":"EGP"}`, alice, alice)
	resp := app.post(t, token, "/api/v1/transfers", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errBody := decodeError(t, resp)
	assert.Equal(t, "VAL_001", errBody["error_code"])
}

func TestIntegration_Reconciliation_DetectsAndFixesDrift(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)
	walletID := app.createWallet(t, token, owner, "EGP")
	app.deposit(t, token, walletID, 80000, "EGP")

	// Corrupt the projection behind the service's back.
	wid := uuid.MustParse(walletID)
	require.NoError(t, app.balanceRepo.SetBalance(context.Background(), nil, wid, "EGP", 123))

	// Dry run reports the drift but leaves it in place.
	runBody := fmt.Sprintf(`{"wallet_ids":["%s"],"dry_run":true}`, walletID)
	respDry := app.post(t, token, "/api/v1/reconciliation/run", runBody)
	require.Equal(t, http.StatusOK, respDry.StatusCode)
	dryData := decodeData(t, respDry)
	assert.Equal(t, float64(1), dryData["wallets_processed"])
	assert.Equal(t, float64(1), dryData["discrepancies_found"])
	assert.Equal(t, float64(0), dryData["discrepancies_fixed"])
	assert.Equal(t, true, dryData["dry_run"])

	respBal := app.get(t, token, "/api/v1/balances")
	balances := decodeDataList(t, respBal)
	assert.Equal(t, float64(123), balances[0].(map[string]interface{})["balance"], "dry run must not repair")

	// Real run repairs the projection from the ledger.
	runBody = fmt.Sprintf(`{"wallet_ids":["%s"],"dry_run":false}`, walletID)
	respFix := app.post(t, token, "/api/v1/reconciliation/run", runBody)
	require.Equal(t, http.StatusOK, respFix.StatusCode)
	fixData := decodeData(t, respFix)
	assert.Equal(t, float64(1), fixData["discrepancies_found"])
	assert.Equal(t, float64(1), fixData["discrepancies_fixed"])

	respBal2 := app.get(t, token, "/api/v1/balances")
	balances2 := decodeDataList(t, respBal2)
	assert.Equal(t, float64(80000), balances2[0].(map[string]interface{})["balance"])
}

func TestIntegration_EmergencyReconcile(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)
	walletID := app.createWallet(t, token, owner, "EGP")
	app.deposit(t, token, walletID, 60000, "EGP")

	wid := uuid.MustParse(walletID)
	require.NoError(t, app.balanceRepo.SetBalance(context.Background(), nil, wid, "EGP", 10000))

	resp := app.post(t, token, "/api/v1/reconciliation/wallets/"+walletID, `{"reason":"ops ticket 4711: projection drifted"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeData(t, resp)
	assert.Equal(t, float64(60000), data["new_balance"])
	assert.Equal(t, float64(50000), data["drift"])
	assert.Equal(t, walletID, data["wallet_id"])
}
