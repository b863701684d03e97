package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClientRecord is one stored client: fixed structured fields plus the
// serialized dynamic attribute bag
type ClientRecord struct {
	ID             int64               `json:"id"`
	Dt             *string             `json:"dt,omitempty"` // Ingestion date-stamp
	Age            *int                `json:"age,omitempty"`
	Gender         *string             `json:"gender,omitempty"`
	AdminArea      *string             `json:"adminarea,omitempty"`     // Administrative area
	CitySmartName  *string             `json:"citySmartName,omitempty"` // City label
	IncomeValue    decimal.NullDecimal `json:"incomeValue"`
	IncomeCategory *string             `json:"incomeCategory,omitempty"`

	// Features holds the dynamic attributes encoded with EncodeAttributes
	Features string `json:"features,omitempty"`
}

// ClientSummary is the short view used for listings
type ClientSummary struct {
	ID      int64            `json:"id"`
	Age     *int             `json:"age,omitempty"`
	Region  *string          `json:"region,omitempty"`
	Income  *decimal.Decimal `json:"income,omitempty"`
	Display string           `json:"display"`
}

// ClientView is the full client representation with materialized attributes
type ClientView struct {
	ID             int64            `json:"id"`
	Dt             *string          `json:"dt,omitempty"`
	Age            *int             `json:"age"`
	Gender         *string          `json:"gender"`
	AdminArea      *string          `json:"adminarea"`
	CitySmartName  *string          `json:"citySmartName,omitempty"`
	IncomeValue    *decimal.Decimal `json:"incomeValue"`
	IncomeCategory *string          `json:"incomeCategory"`
	Features       *Attributes      `json:"features"`
}

// ClientWithScore pairs a client with its prediction
type ClientWithScore struct {
	Client              ClientView `json:"client"`
	ApprovalProbability *float64   `json:"approvalProbability"`
	Decision            *string    `json:"decision"`
}

// Summary builds the listing view of the record
func (r *ClientRecord) Summary() ClientSummary {
	age := "?"
	if r.Age != nil {
		age = fmt.Sprintf("%d лет", *r.Age)
	}
	area := ""
	if r.AdminArea != nil {
		area = *r.AdminArea
	}

	s := ClientSummary{
		ID:      r.ID,
		Age:     r.Age,
		Region:  r.AdminArea,
		Display: fmt.Sprintf("%d | %s | %s", r.ID, age, area),
	}
	if r.IncomeValue.Valid {
		income := r.IncomeValue.Decimal
		s.Income = &income
	}
	return s
}

// View builds the full view of the record using already decoded attributes
func (r *ClientRecord) View(features *Attributes) ClientView {
	if features == nil {
		features = NewAttributes(0)
	}
	v := ClientView{
		ID:             r.ID,
		Dt:             r.Dt,
		Age:            r.Age,
		Gender:         r.Gender,
		AdminArea:      r.AdminArea,
		CitySmartName:  r.CitySmartName,
		IncomeCategory: r.IncomeCategory,
		Features:       features,
	}
	if r.IncomeValue.Valid {
		income := r.IncomeValue.Decimal
		v.IncomeValue = &income
	}
	return v
}
