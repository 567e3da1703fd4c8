package payments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	config "github.com/goshopnow/backend/configs"
)

// ErrServiceUnavailable is returned when the gateway cannot be reached at
// all (timeout, DNS failure, connection refused) or answers with a body we
// cannot decode. Callers surface it as a 503 and may retry.
var ErrServiceUnavailable = errors.New("khalti gateway unavailable")

// RejectionError means Khalti was reachable but refused the request. The
// decoded response body is passed through to the client verbatim.
type RejectionError struct {
	StatusCode int
	Fields     map[string]interface{}
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("khalti rejected request with status %d", e.StatusCode)
}

type ProductDetail struct {
	Name       string  `json:"name"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"total_price"`
	Identity   string  `json:"identity"`
	ID         uint    `json:"id"`
}

type InitiateRequest struct {
	PurchaseOrderID   string          `json:"purchase_order_id"`
	PurchaseOrderName string          `json:"purchase_order_name"`
	Amount            int64           `json:"amount"`
	ReturnURL         string          `json:"return_url"`
	WebsiteURL        string          `json:"website_url"`
	ProductDetails    []ProductDetail `json:"product_details"`
}

type InitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
	ExpiresIn  int    `json:"expires_in"`
}

type LookupResponse struct {
	Pidx          string `json:"pidx"`
	TotalAmount   int64  `json:"total_amount"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Fee           int64  `json:"fee"`
	Refunded      bool   `json:"refunded"`
}

type KhaltiClient struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewKhaltiClient builds a client from configuration. Handlers construct
// one per request; the struct holds no mutable state shared across calls.
func NewKhaltiClient() *KhaltiClient {
	return &KhaltiClient{
		BaseURL: config.Config("KHALTI_BASE_URL"),
		APIKey:  config.Config("KHALTI_API_KEY"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Initiate registers a payment intent with Khalti. Amounts in the request
// are already in paisa; this is the only layer that talks minor units.
func (k *KhaltiClient) Initiate(payload InitiateRequest) (*InitiateResponse, error) {
	respBody, statusCode, err := k.post("/epayment/initiate/", payload)
	if err != nil {
		return nil, err
	}

	if statusCode != http.StatusOK {
		var fields map[string]interface{}
		if err := json.Unmarshal(respBody, &fields); err != nil {
			return nil, ErrServiceUnavailable
		}
		return nil, &RejectionError{StatusCode: statusCode, Fields: fields}
	}

	var initiateResp InitiateResponse
	if err := json.Unmarshal(respBody, &initiateResp); err != nil {
		return nil, ErrServiceUnavailable
	}

	return &initiateResp, nil
}

// Lookup fetches the settlement status of a previously initiated intent.
func (k *KhaltiClient) Lookup(pidx string) (*LookupResponse, error) {
	payload := map[string]string{"pidx": pidx}
	respBody, statusCode, err := k.post("/epayment/lookup/", payload)
	if err != nil {
		return nil, err
	}

	if statusCode != http.StatusOK {
		var fields map[string]interface{}
		if err := json.Unmarshal(respBody, &fields); err != nil {
			return nil, ErrServiceUnavailable
		}
		return nil, &RejectionError{StatusCode: statusCode, Fields: fields}
	}

	var lookupResp LookupResponse
	if err := json.Unmarshal(respBody, &lookupResp); err != nil {
		return nil, ErrServiceUnavailable
	}

	return &lookupResp, nil
}

func (k *KhaltiClient) post(path string, payload interface{}) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal khalti payload: %v", err)
	}

	req, err := http.NewRequest("POST", k.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create khalti request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", k.APIKey)

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, 0, ErrServiceUnavailable
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, 0, ErrServiceUnavailable
	}

	return buf.Bytes(), resp.StatusCode, nil
}
