package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// PlanType classifies a member's billing product.
type PlanType string

const (
	PlanMonthly PlanType = "monthly"
	PlanAnnual  PlanType = "annual"
	PlanOneTime PlanType = "one_time"
	PlanUnknown PlanType = "unknown"
)

// Standing tells whether a member came from the active or the cancelling listing.
type Standing string

const (
	StandingActive     Standing = "active"
	StandingCancelling Standing = "cancelling"
)

// Member is the canonical record every calculator works on.
//
// Price is in minor currency units. MRR is the monthly-normalized price and is
// always derived from PlanType and Price. JoinedAt and ExitedAt are UTC dates.
type Member struct {
	ID            string
	JoinedAt      *time.Time
	ExitedAt      *time.Time
	IsActive      bool
	PlanType      PlanType
	Price         int64
	MRR           float64
	Level         int
	MonthsRenewed int
	Standing      Standing
}

// BillingProduct is one entry of the billing catalogue.
type BillingProduct struct {
	ID       string
	Interval PlanType
	Price    int64
}

// Catalogue resolves billing product ids.
type Catalogue map[string]BillingProduct

// Lookup returns the billing product for id.
func (c Catalogue) Lookup(id string) (BillingProduct, bool) {
	id = strings.TrimSpace(id)
	if id == "" || c == nil {
		return BillingProduct{}, false
	}
	bp, ok := c[id]
	return bp, ok
}

// FlexString decodes either a JSON string or a JSON number.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		*f = ""
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// RawMember is one record of a listing in the platform's native shape.
type RawMember struct {
	ID       FlexString    `json:"id"`
	Member   RawMembership `json:"member"`
	Metadata RawMetadata   `json:"metadata"`
}

// RawMembership carries the lifecycle timestamps. Timestamps may be ISO-8601
// strings, epoch seconds or epoch nanoseconds.
type RawMembership struct {
	ApprovedAt       json.RawMessage `json:"approvedAt"`
	Churned          json.RawMessage `json:"churned"`
	RemovedAt        json.RawMessage `json:"removedAt"`
	BillingProductID FlexString      `json:"billingProductId"`
}

// RawMetadata holds spData, either an object or a JSON-encoded string.
type RawMetadata struct {
	SPData json.RawMessage `json:"spData"`
}

// RawBillingProduct is one billing product as returned by the platform.
type RawBillingProduct struct {
	Amount               json.RawMessage `json:"amount"`
	RecurringInterval    FlexString      `json:"recurringInterval"`
	RecurringIntervalAlt FlexString      `json:"recurring_interval"`
}

// Interval returns the declared recurring interval, or def when absent.
func (p RawBillingProduct) Interval(def string) string {
	if v := strings.TrimSpace(p.RecurringInterval.String()); v != "" {
		return v
	}
	if v := strings.TrimSpace(p.RecurringIntervalAlt.String()); v != "" {
		return v
	}
	return def
}

// Price parses Amount, returning 0 when it is not numeric.
func (p RawBillingProduct) Price() int64 {
	raw := bytes.TrimSpace(p.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		raw = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0
	}
	return int64(v)
}

// RawBillingProductGroup is the platform's membershipBillingProducts object.
type RawBillingProductGroup struct {
	MonthlyBpID           FlexString         `json:"monthlyBpId"`
	MonthlyBillingProduct *RawBillingProduct `json:"monthlyBillingProduct"`
	AnnualBpID            FlexString         `json:"annualBpId"`
	AnnualBillingProduct  *RawBillingProduct `json:"annualBillingProduct"`
	OneTimeBpID           FlexString         `json:"oneTimeBpId"`
	OneTimeBillingProduct *RawBillingProduct `json:"oneTimeBillingProduct"`
}

// Snapshot is a complete, already fetched view of one community.
type Snapshot struct {
	Community       string                   `json:"community"`
	FetchedAt       time.Time                `json:"fetched_at"`
	Active          []RawMember              `json:"active"`
	Churned         []RawMember              `json:"churned"`
	Cancelling      []RawMember              `json:"cancelling"`
	BillingProducts []RawBillingProductGroup `json:"billing_products"`
}

// UnmarshalJSON decodes every listing record on its own. A record with a field
// of the wrong type keeps its other fields; a record that is not an object
// decodes to the zero RawMember. Only a document that is not an object fails.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var doc struct {
		Community       FlexString      `json:"community"`
		FetchedAt       json.RawMessage `json:"fetched_at"`
		Active          json.RawMessage `json:"active"`
		Churned         json.RawMessage `json:"churned"`
		Cancelling      json.RawMessage `json:"cancelling"`
		BillingProducts json.RawMessage `json:"billing_products"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	*s = Snapshot{
		Community:       doc.Community.String(),
		Active:          decodeRecords[RawMember](doc.Active),
		Churned:         decodeRecords[RawMember](doc.Churned),
		Cancelling:      decodeRecords[RawMember](doc.Cancelling),
		BillingProducts: decodeRecords[RawBillingProductGroup](doc.BillingProducts),
	}
	var fetchedAt time.Time
	if err := json.Unmarshal(doc.FetchedAt, &fetchedAt); err == nil {
		s.FetchedAt = fetchedAt
	}
	return nil
}

func decodeRecords[T any](raw json.RawMessage) []T {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				v = *new(T)
			}
		}
		out = append(out, v)
	}
	return out
}
