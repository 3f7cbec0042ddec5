package analytics

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/memberhud/internal/membership/domain"
)

// Population is a normalized snapshot split by listing.
type Population struct {
	Active     []domain.Member
	Churned    []domain.Member
	Cancelling []domain.Member
}

// All returns active and churned members. Cancelling members duplicate
// active ones and are left out.
func (p Population) All() []domain.Member {
	out := make([]domain.Member, 0, len(p.Active)+len(p.Churned))
	out = append(out, p.Active...)
	return append(out, p.Churned...)
}

// Normalize converts every listing of snap into canonical members.
// Members of the active listing are forced active.
func Normalize(snap domain.Snapshot, now time.Time) Population {
	catalogue := BuildCatalogue(snap.BillingProducts)

	pop := Population{
		Active:     make([]domain.Member, 0, len(snap.Active)),
		Churned:    make([]domain.Member, 0, len(snap.Churned)),
		Cancelling: make([]domain.Member, 0, len(snap.Cancelling)),
	}
	for _, raw := range snap.Active {
		pop.Active = append(pop.Active, NormalizeMember(raw, catalogue, true, now))
	}
	for _, raw := range snap.Churned {
		pop.Churned = append(pop.Churned, NormalizeMember(raw, catalogue, false, now))
	}
	for _, raw := range snap.Cancelling {
		m := NormalizeMember(raw, catalogue, false, now)
		m.Standing = domain.StandingCancelling
		pop.Cancelling = append(pop.Cancelling, m)
	}
	return pop
}

// NormalizeMember converts one raw record. It never fails: a malformed field
// degrades to nil or zero on the returned member.
func NormalizeMember(raw domain.RawMember, catalogue domain.Catalogue, forceActive bool, now time.Time) domain.Member {
	joined := parseTimestamp(raw.Member.ApprovedAt)
	exited := parseTimestamp(raw.Member.Churned)

	plan, price := resolvePlan(catalogue, raw.Member.BillingProductID.String())

	return domain.Member{
		ID:            strings.TrimSpace(raw.ID.String()),
		JoinedAt:      joined,
		ExitedAt:      exited,
		IsActive:      exited == nil || forceActive,
		PlanType:      plan,
		Price:         price,
		MRR:           MonthlyRevenue(plan, price),
		Level:         parseLevel(raw.Metadata.SPData),
		MonthsRenewed: monthsRenewed(joined, plan, dateOf(now)),
		Standing:      domain.StandingActive,
	}
}

// MonthlyRevenue normalizes price to one month of revenue for plan.
func MonthlyRevenue(plan domain.PlanType, price int64) float64 {
	if price <= 0 {
		return 0
	}
	switch plan {
	case domain.PlanAnnual:
		return float64(price) / 12
	case domain.PlanMonthly:
		return float64(price)
	default:
		return 0
	}
}

// ParseInterval maps a platform interval string to a plan type.
func ParseInterval(interval string) domain.PlanType {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "year", "annual":
		return domain.PlanAnnual
	case "month", "monthly":
		return domain.PlanMonthly
	case "one_time", "one-time":
		return domain.PlanOneTime
	default:
		return domain.PlanUnknown
	}
}

// BuildCatalogue flattens the platform's billing product groups into an id lookup.
func BuildCatalogue(groups []domain.RawBillingProductGroup) domain.Catalogue {
	catalogue := domain.Catalogue{}
	add := func(id domain.FlexString, product *domain.RawBillingProduct, defInterval string) {
		key := strings.TrimSpace(id.String())
		if key == "" || product == nil {
			return
		}
		catalogue[key] = domain.BillingProduct{
			ID:       key,
			Interval: ParseInterval(product.Interval(defInterval)),
			Price:    product.Price(),
		}
	}
	for _, g := range groups {
		add(g.MonthlyBpID, g.MonthlyBillingProduct, "month")
		add(g.AnnualBpID, g.AnnualBillingProduct, "year")
		add(g.OneTimeBpID, g.OneTimeBillingProduct, "one_time")
	}
	return catalogue
}

func resolvePlan(catalogue domain.Catalogue, billingProductID string) (domain.PlanType, int64) {
	bp, ok := catalogue.Lookup(billingProductID)
	if !ok {
		return domain.PlanUnknown, 0
	}
	price := bp.Price
	if price < 0 {
		price = 0
	}
	return bp.Interval, price
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts ISO-8601 strings, numeric epochs and numeric strings.
// Epoch values above 1e12 are nanoseconds.
func parseTimestamp(raw json.RawMessage) *time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] != '"' {
		v, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return nil
		}
		return fromEpoch(v)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// keep the calendar date as written, whatever its offset
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(v)
	}
	return nil
}

// maxEpochSeconds is 9999-12-31T23:59:59Z.
const maxEpochSeconds = 253402300799

func fromEpoch(v float64) *time.Time {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	if v > 1e12 {
		v = v / 1e9
	}
	if v < 0 || v > maxEpochSeconds {
		return nil
	}
	sec, frac := math.Modf(v)
	d := dateOf(time.Unix(int64(sec), int64(frac*1e9)))
	return &d
}

// parseLevel reads metadata.spData.lv. spData may be an object or a JSON
// encoded string. Anything outside 1..8 is 0.
func parseLevel(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		raw = []byte(s)
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0
	}
	lv, ok := data["lv"]
	if !ok {
		return 0
	}
	lv = bytes.TrimSpace(lv)
	if len(lv) > 0 && lv[0] == '"' {
		var s string
		if err := json.Unmarshal(lv, &s); err != nil {
			return 0
		}
		lv = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(lv), 64)
	if err != nil || v != math.Trunc(v) || v < 1 || v > 8 {
		return 0
	}
	return int(v)
}

func monthsRenewed(joined *time.Time, plan domain.PlanType, today time.Time) int {
	if joined == nil || joined.After(today) {
		return 0
	}
	days := int(today.Sub(*joined).Hours() / 24)
	if plan == domain.PlanMonthly {
		return days / 30
	}
	return days / 365
}
