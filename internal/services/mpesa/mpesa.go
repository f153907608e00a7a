package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Service is a thin client for the Safaricom Daraja API. The OAuth token
// source handles caching and refresh of the access token.
type Service struct {
	Client    *http.Client
	ShortCode string
	BaseURL   string
}

// New wires the Daraja client-credentials flow. The returned service is nil
// when no credentials are configured, in which case deposits complete without
// an STK push.
func New(consumerKey, consumerSecret, tokenURL, shortCode string) *Service {
	if consumerKey == "" || consumerSecret == "" {
		return nil
	}

	conf := &clientcredentials.Config{
		ClientID:     consumerKey,
		ClientSecret: consumerSecret,
		TokenURL:     tokenURL,
	}

	return &Service{
		Client:    conf.Client(context.Background()),
		ShortCode: shortCode,
		BaseURL:   "https://sandbox.safaricom.co.ke",
	}
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
}

// STKPush prompts the given phone for a wallet deposit of amount.
func (s *Service) STKPush(phoneNumber string, amount int64, reference string) (*STKPushResponse, error) {
	ts := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(s.ShortCode + ts))

	body, err := json.Marshal(stkPushRequest{
		BusinessShortCode: s.ShortCode,
		Password:          password,
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phoneNumber,
		PartyB:            s.ShortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       "https://example.invalid/mpesa/callback",
		AccountReference:  reference,
		TransactionDesc:   "Wallet deposit",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daraja stk push failed: %s: %s", resp.Status, raw)
	}

	var out STKPushResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
