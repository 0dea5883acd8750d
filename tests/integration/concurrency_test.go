package integration

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentWithdrawals drains a wallet with 100 concurrent withdrawals
// whose total exactly equals the balance. The transactor serializes the
// funds check and the ledger append the way row locks do in the real store,
// so every request succeeds and the final balance is exactly zero.
func TestConcurrentWithdrawals(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)
	walletID := app.createWallet(t, token, owner, "EGP")
	app.deposit(t, token, walletID, 10_000_000, "EGP")

	concurrency := 100
	amount := int64(100_000)

	var wg sync.WaitGroup
	var successCount atomic.Int64
	var failCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			body := fmt.Sprintf(`{"wallet_id":"%s","amount":%d,"currency":"EGP","type":"WITHDRAWAL","idempotency_key":"drain-%d"}`,
				walletID, -amount, idx)
			resp := app.post(t, token, "/api/v1/transactions", body)
			resp.Body.Close()

			if resp.StatusCode == http.StatusCreated {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	t.Logf("Concurrent withdrawals: %d succeeded, %d failed (out of %d)", successCount.Load(), failCount.Load(), concurrency)
	assert.Equal(t, int64(concurrency), successCount.Load(), "all withdrawals fit the balance and should succeed")

	respBal := app.get(t, token, "/api/v1/balances")
	require.Equal(t, http.StatusOK, respBal.StatusCode)
	balances := decodeDataList(t, respBal)
	require.Len(t, balances, 1)
	assert.Equal(t, float64(0), balances[0].(map[string]interface{})["balance"], "wallet should be drained to exactly zero")

	respTx := app.get(t, token, "/api/v1/wallets/"+walletID+"/transactions")
	txData := decodeData(t, respTx)
	assert.Equal(t, float64(concurrency+1), txData["total"], "one deposit plus one entry per withdrawal")
}

// TestConcurrentWithdrawals_InsufficientFunds fires more concurrent
// withdrawals than the balance covers. The locked funds check admits exactly
// as many as the balance allows; the rest fail with 402 and the balance
// never goes negative.
func TestConcurrentWithdrawals_InsufficientFunds(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)
	walletID := app.createWallet(t, token, owner, "EGP")
	app.deposit(t, token, walletID, 500_000, "EGP")

	// 10 x 100,000 requested against 500,000 available: exactly 5 can clear.
	concurrency := 10
	amount := int64(100_000)

	var wg sync.WaitGroup
	var successCount atomic.Int64
	var insufficientCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			body := fmt.Sprintf(`{"wallet_id":"%s","amount":%d,"currency":"EGP","type":"WITHDRAWAL","idempotency_key":"overspend-%d"}`,
				walletID, -amount, idx)
			resp := app.post(t, token, "/api/v1/transactions", body)
			resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusPaymentRequired:
				insufficientCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	t.Logf("Overspend test: %d succeeded, %d rejected (out of %d)", successCount.Load(), insufficientCount.Load(), concurrency)
	assert.Equal(t, int64(5), successCount.Load(), "exactly the affordable withdrawals should clear")
	assert.Equal(t, int64(5), insufficientCount.Load(), "the rest should be rejected for insufficient balance")

	respBal := app.get(t, token, "/api/v1/balances")
	balances := decodeDataList(t, respBal)
	balance := balances[0].(map[string]interface{})["balance"].(float64)
	t.Logf("Final balance: %.0f", balance)
	assert.Equal(t, float64(0), balance)
	assert.GreaterOrEqual(t, balance, float64(0), "balance must never go negative")
}

// TestConcurrentIdempotency fires 20 concurrent requests carrying the same
// idempotency key. Exactly one ledger entry may result; every caller gets a
// success response naming the same transaction.
func TestConcurrentIdempotency(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	owner := uuid.New()
	token := app.token(t, owner)
	walletID := app.createWallet(t, token, owner, "EGP")
	app.deposit(t, token, walletID, 1_000_000, "EGP")

	concurrency := 20
	body := fmt.Sprintf(`{"wallet_id":"%s","amount":-50000,"currency":"EGP","type":"WITHDRAWAL","idempotency_key":"same-key-001"}`, walletID)

	var wg sync.WaitGroup
	var successCount atomic.Int64
	txIDs := make([]string, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			resp := app.post(t, token, "/api/v1/transactions", body)
			if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
				successCount.Add(1)
				data := decodeData(t, resp)
				txIDs[idx] = data["transaction_id"].(string)
				return
			}
			resp.Body.Close()
		}(i)
	}

	wg.Wait()

	t.Logf("Idempotency test: %d succeeded (out of %d)", successCount.Load(), concurrency)
	assert.Equal(t, int64(concurrency), successCount.Load(), "every duplicate should get a success response")

	uniqueIDs := make(map[string]struct{})
	for _, id := range txIDs {
		if id != "" {
			uniqueIDs[id] = struct{}{}
		}
	}
	assert.Len(t, uniqueIDs, 1, "all responses must name the same transaction")

	// Exactly one debit applied
	respBal := app.get(t, token, "/api/v1/balances")
	balances := decodeDataList(t, respBal)
	assert.Equal(t, float64(950_000), balances[0].(map[string]interface{})["balance"])

	respTx := app.get(t, token, "/api/v1/wallets/"+walletID+"/transactions")
	txData := decodeData(t, respTx)
	assert.Equal(t, float64(2), txData["total"], "deposit plus exactly one withdrawal")
}

// TestConcurrentOpposingTransfers runs transfers in both directions between
// two funded owners at once. Funds are conserved and the ascending lock
// order keeps opposing transfers from deadlocking.
func TestConcurrentOpposingTransfers(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	alice := uuid.New()
	bob := uuid.New()
	aliceToken := app.token(t, alice)
	bobToken := app.token(t, bob)

	aliceWallet := app.createWallet(t, aliceToken, alice, "EGP")
	bobWallet := app.createWallet(t, bobToken, bob, "EGP")
	app.deposit(t, aliceToken, aliceWallet, 100_000, "EGP")
	app.deposit(t, bobToken, bobWallet, 100_000, "EGP")

	rounds := 25
	var wg sync.WaitGroup

	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"from_owner_id":"%s","to_owner_id":"%s","amount":1000,"currency":"EGP","idempotency_key":"ab-%d"}`, alice, bob, idx)
			resp := app.post(t, aliceToken, "/api/v1/transfers", body)
			resp.Body.Close()
		}(i)
		go func(idx int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"from_owner_id":"%s","to_owner_id":"%s","amount":1000,"currency":"EGP","idempotency_key":"ba-%d"}`, bob, alice, idx)
			resp := app.post(t, bobToken, "/api/v1/transfers", body)
			resp.Body.Close()
		}(i)
	}

	wg.Wait()

	aliceBalances := decodeDataList(t, app.get(t, aliceToken, "/api/v1/balances"))
	bobBalances := decodeDataList(t, app.get(t, bobToken, "/api/v1/balances"))
	aliceBalance := aliceBalances[0].(map[string]interface{})["balance"].(float64)
	bobBalance := bobBalances[0].(map[string]interface{})["balance"].(float64)

	t.Logf("Final balances: alice=%.0f bob=%.0f", aliceBalance, bobBalance)
	assert.Equal(t, float64(200_000), aliceBalance+bobBalance, "transfers must conserve total funds")
	assert.GreaterOrEqual(t, aliceBalance, float64(0))
	assert.GreaterOrEqual(t, bobBalance, float64(0))
}
