package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/logger"
)

const serviceName = "nessie"

// NessieConfig holds the settlement service connection settings.
type NessieConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Breaker BreakerConfig
}

// BreakerConfig tunes the circuit breaker in front of the settlement service.
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// NessieClient talks to a Nessie-style banking REST API. Every call goes
// through a circuit breaker; client-side rejections (4xx) do not trip it.
type NessieClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewNessieClient creates a new settlement client
func NewNessieClient(cfg NessieConfig) (*NessieClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("nessie base url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("nessie api key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Breaker.ConsecutiveFailures == 0 {
		cfg.Breaker.ConsecutiveFailures = 5
	}

	failures := cfg.Breaker.ConsecutiveFailures
	settings := gobreaker.Settings{
		Name:        "service-" + serviceName,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			var remote *RemoteServiceError
			if errors.As(err, &remote) && remote.Status >= 400 && remote.Status < 500 {
				return true
			}
			return err == nil
		},
	}

	return &NessieClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}, nil
}

type accountResponse struct {
	ID      string  `json:"_id"`
	Balance float64 `json:"balance"`
}

type createdResponse struct {
	Code          int    `json:"code"`
	Message       string `json:"message"`
	ObjectCreated struct {
		ID string `json:"_id"`
	} `json:"objectCreated"`
}

type transferRequest struct {
	Medium          string  `json:"medium"`
	TransactionDate string  `json:"transaction_date"`
	Status          string  `json:"status"`
	Amount          float64 `json:"amount"`
	Description     string  `json:"description,omitempty"`
}

type purchaseRequest struct {
	MerchantID   string  `json:"merchant_id"`
	Medium       string  `json:"medium"`
	PurchaseDate string  `json:"purchase_date"`
	Amount       float64 `json:"amount"`
	Status       string  `json:"status"`
	Description  string  `json:"description,omitempty"`
}

type address struct {
	StreetNumber string `json:"street_number"`
	StreetName   string `json:"street_name"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
}

type customerRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Address   address `json:"address"`
}

type accountRequest struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
	Rewards  int    `json:"rewards"`
	Balance  int64  `json:"balance"`
}

type merchantRequest struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Address  address `json:"address"`
}

func (c *NessieClient) GetBalance(ctx context.Context, accountRef string) (domain.Money, error) {
	var resp accountResponse
	if err := c.do(ctx, OpGetBalance, http.MethodGet, "/accounts/"+url.PathEscape(accountRef), nil, &resp); err != nil {
		return 0, err
	}
	return domain.MoneyFromFloat(resp.Balance), nil
}

func (c *NessieClient) Withdraw(ctx context.Context, accountRef string, amount domain.Money, memo string) (string, error) {
	body := transferRequest{
		Medium:          "balance",
		TransactionDate: today(),
		Status:          "pending",
		Amount:          amount.Float64(),
		Description:     memo,
	}
	return c.create(ctx, OpWithdraw, "/accounts/"+url.PathEscape(accountRef)+"/withdrawals", body)
}

func (c *NessieClient) Deposit(ctx context.Context, accountRef string, amount domain.Money, memo string) (string, error) {
	body := transferRequest{
		Medium:          "balance",
		TransactionDate: today(),
		Status:          "pending",
		Amount:          amount.Float64(),
		Description:     memo,
	}
	return c.create(ctx, OpDeposit, "/accounts/"+url.PathEscape(accountRef)+"/deposits", body)
}

func (c *NessieClient) Purchase(ctx context.Context, accountRef, merchantRef string, amount domain.Money, memo string) (string, error) {
	body := purchaseRequest{
		MerchantID:   merchantRef,
		Medium:       "balance",
		PurchaseDate: today(),
		Amount:       amount.Float64(),
		Status:       "pending",
		Description:  memo,
	}
	return c.create(ctx, OpPurchase, "/accounts/"+url.PathEscape(accountRef)+"/purchases", body)
}

// OpenAccount creates a customer and a checking account funded with opening.
func (c *NessieClient) OpenAccount(ctx context.Context, firstName, lastName string, opening domain.Money) (Account, error) {
	customerID, err := c.create(ctx, OpOpenAccount, "/customers", customerRequest{
		FirstName: firstName,
		LastName:  lastName,
		Address: address{
			StreetNumber: "1",
			StreetName:   "Main St",
			City:         "Austin",
			State:        "TX",
			Zip:          "78701",
		},
	})
	if err != nil {
		return Account{}, err
	}

	// Nessie only takes whole units for an opening balance; report what was
	// actually funded so the local ledger starts from the same amount.
	whole := opening.Decimal().IntPart()
	accountID, err := c.create(ctx, OpOpenAccount, "/customers/"+url.PathEscape(customerID)+"/accounts", accountRequest{
		Type:     "Checking",
		Nickname: strings.TrimSpace(firstName + " " + lastName),
		Balance:  whole,
	})
	if err != nil {
		return Account{}, err
	}
	return Account{CustomerRef: customerID, AccountRef: accountID, Balance: domain.Cents(whole * 100)}, nil
}

// CreateMerchant registers a merchant. location is "City, ST".
func (c *NessieClient) CreateMerchant(ctx context.Context, name, category, location string) (string, error) {
	city, state, _ := strings.Cut(location, ",")
	return c.create(ctx, OpCreateMerchant, "/merchants", merchantRequest{
		Name:     name,
		Category: category,
		Address: address{
			StreetNumber: "1",
			StreetName:   "Main St",
			City:         strings.TrimSpace(city),
			State:        strings.TrimSpace(state),
			Zip:          "00000",
		},
	})
}

func (c *NessieClient) create(ctx context.Context, operation, path string, body any) (string, error) {
	var resp createdResponse
	if err := c.do(ctx, operation, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	if resp.ObjectCreated.ID == "" {
		return "", &RemoteServiceError{Operation: operation, Status: resp.Code, Message: "response carried no object id"}
	}
	return resp.ObjectCreated.ID, nil
}

func (c *NessieClient) do(ctx context.Context, operation, method, path string, body, out any) error {
	logger.ExternalServiceCall(serviceName, operation, "method", method, "path", path)
	start := time.Now()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, operation, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &RemoteServiceError{Operation: operation, Status: http.StatusServiceUnavailable, Message: fmt.Sprintf("settlement service unavailable: %v", err)}
	}

	logger.ExternalServiceResult(serviceName, operation, err, "duration_ms", time.Since(start).Milliseconds())
	return err
}

func (c *NessieClient) roundTrip(ctx context.Context, operation, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteServiceError{Operation: operation, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &RemoteServiceError{Operation: operation, Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteServiceError{Operation: operation, Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RemoteServiceError{Operation: operation, Status: resp.StatusCode, Message: fmt.Sprintf("invalid response body: %v", err)}
	}
	return nil
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}
