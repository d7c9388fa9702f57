package bluevia

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/vyrodovalexey/solitude/internal/util"
)

// Amount bounds, inclusive.
var (
	minAmount = big.NewRat(1, 10)
	maxAmount = big.NewRat(5000, 1)
)

// PayRequest is the payment a seller asks Bluevia to charge.
type PayRequest struct {
	Aud            string      `json:"aud"`
	Typ            string      `json:"typ"`
	Amount         json.Number `json:"amount"`
	AppName        string      `json:"app_name"`
	AppDescription string      `json:"app_description"`
	ChargebackURL  string      `json:"chargeback_url"`
	Currency       string      `json:"currency"`
	PostbackURL    string      `json:"postback_url"`
	ProductData    string      `json:"product_data"`
	Seller         string      `json:"seller"`
}

// JWTRequest asks whether a pay JWT was signed with the shared secret.
type JWTRequest struct {
	JWT    string `json:"jwt"`
	Seller string `json:"seller"`
}

func (s *Service) validatePay(req *PayRequest) error {
	errs := FieldErrors{}

	required := map[string]string{
		"aud":             req.Aud,
		"typ":             req.Typ,
		"amount":          req.Amount.String(),
		"app_name":        req.AppName,
		"app_description": req.AppDescription,
		"chargeback_url":  req.ChargebackURL,
		"currency":        req.Currency,
		"postback_url":    req.PostbackURL,
		"product_data":    req.ProductData,
		"seller":          req.Seller,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			errs.Add(field, "This field is required.")
		}
	}

	if req.Amount != "" {
		amount, ok := new(big.Rat).SetString(req.Amount.String())
		switch {
		case !ok:
			errs.Add("amount", "Enter a number.")
		case amount.Cmp(minAmount) < 0:
			errs.Add("amount", "Ensure this value is greater than or equal to 0.1.")
		case amount.Cmp(maxAmount) > 0:
			errs.Add("amount", "Ensure this value is less than or equal to 5000.")
		}
	}

	if req.Currency != "" {
		if _, ok := s.currencies[req.Currency]; !ok {
			errs.Add("currency", "Select a valid choice. "+req.Currency+" is not one of the available choices.")
		}
	}

	for field, v := range map[string]string{"chargeback_url": req.ChargebackURL, "postback_url": req.PostbackURL} {
		if v != "" && util.ValidateURL(v) != nil {
			errs.Add(field, "Enter a valid URL.")
		}
	}

	if !strings.HasPrefix(req.Typ, req.Aud) {
		errs.Add(nonFieldKey, "aud and type mismatch.")
	}

	return errs.errOrNil()
}

func validateJWTRequest(req *JWTRequest) error {
	errs := FieldErrors{}
	if strings.TrimSpace(req.JWT) == "" {
		errs.Add("jwt", "This field is required.")
	}
	if strings.TrimSpace(req.Seller) == "" {
		errs.Add("seller", "This field is required.")
	}
	return errs.errOrNil()
}
