package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	PaidFromSelf    PaidFrom = "SELF"
	PaidFromPartner PaidFrom = "PARTNER"
	PaidFromJoint   PaidFrom = "JOINT"
)

const (
	Weekly    Frequency = "WEEKLY"
	Biweekly  Frequency = "BIWEEKLY"
	Monthly   Frequency = "MONTHLY"
	Quarterly Frequency = "QUARTERLY"
	Yearly    Frequency = "YEARLY"
)

const DefaultCurrency = "USD"

type (
	// PaidFrom names the funding source that actually paid for an expense.
	PaidFrom string

	// Frequency is the repetition interval of a recurring template.
	Frequency string

	Date struct {
		time.Time
	}

	Expense struct {
		ID              int64
		OwnerID         string
		Amount          decimal.Decimal
		Description     string
		Date            Date
		PaidFrom        PaidFrom
		CategoryID      *int64
		Currency        string
		IsRecurring     bool
		Frequency       Frequency // empty unless IsRecurring
		NextDueDate     *Date     // nil on a template means paused
		IsAutoGenerated bool
		Notes           string
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	Category struct {
		ID            int64
		OwnerID       string
		Name          string
		Color         string
		MonthlyBudget *decimal.Decimal
		CreatedAt     time.Time
	}

	// SplitConfig is the per-owner allocation of shared (non-joint) expenses.
	SplitConfig struct {
		OwnerID         string
		SelfPercent     decimal.Decimal
		PartnerPercent  decimal.Decimal
		DefaultCurrency string
		UpdatedAt       time.Time
	}

	// Settlement is the persisted state of one owner's month. Amount is
	// positive when self owes partner and negative when partner owes self.
	Settlement struct {
		ID         int64
		OwnerID    string
		MonthStart Date
		Amount     decimal.Decimal
		Settled    bool
		SettledAt  *time.Time
		Notes      string
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}
)

var hundred = decimal.NewFromInt(100)

func (p PaidFrom) Valid() bool {
	switch p {
	case PaidFromSelf, PaidFromPartner, PaidFromJoint:
		return true
	}
	return false
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// ParsePaidFrom accepts the literal in any case.
func ParsePaidFrom(s string) (PaidFrom, error) {
	p := PaidFrom(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", Invalid("paidFrom", "must be one of SELF, PARTNER, JOINT")
	}
	return p, nil
}

func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", Invalid("frequency", "must be one of WEEKLY, BIWEEKLY, MONTHLY, QUARTERLY, YEARLY")
	}
	return f, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, Invalid("date", "must be formatted as YYYY-MM-DD")
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return Invalid("date", "is required")
	}
	return nil
}

// NormalizeCategoryKey is the case-insensitive uniqueness key for category names.
func NormalizeCategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return Invalid("name", "cannot be empty")
	}
	if utf8.RuneCountInString(name) > 50 {
		return Invalid("name", "too long (max 50 characters)")
	}
	if c.MonthlyBudget != nil && c.MonthlyBudget.IsNegative() {
		return Invalid("monthlyBudget", "must be zero or greater")
	}
	return nil
}

// DefaultSplitConfig is returned for owners that never stored a config.
func DefaultSplitConfig(ownerID string) SplitConfig {
	return SplitConfig{
		OwnerID:         ownerID,
		SelfPercent:     decimal.NewFromInt(65),
		PartnerPercent:  decimal.NewFromInt(35),
		DefaultCurrency: DefaultCurrency,
	}
}

func (c SplitConfig) Validate() error {
	if c.SelfPercent.Exponent() < -PercentPlaces {
		return Invalid("selfPercent", "at most %d decimals", PercentPlaces)
	}
	if c.PartnerPercent.Exponent() < -PercentPlaces {
		return Invalid("partnerPercent", "at most %d decimals", PercentPlaces)
	}
	if c.SelfPercent.IsNegative() || c.SelfPercent.GreaterThan(hundred) {
		return Invalid("selfPercent", "must be between 0 and 100")
	}
	if c.PartnerPercent.IsNegative() || c.PartnerPercent.GreaterThan(hundred) {
		return Invalid("partnerPercent", "must be between 0 and 100")
	}
	if !c.SelfPercent.Add(c.PartnerPercent).Equal(hundred) {
		return Invalid("selfPercent", "selfPercent and partnerPercent must sum to 100, got %s",
			c.SelfPercent.Add(c.PartnerPercent).String())
	}
	return ValidateCurrency(c.DefaultCurrency)
}

// ValidateCurrency accepts three-letter upper-case codes.
func ValidateCurrency(code string) error {
	if len(code) != 3 {
		return Invalid("currency", "must be a 3-letter code")
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return Invalid("currency", "must be a 3-letter upper-case code")
		}
	}
	return nil
}

// Direction names who owes whom for a settlement amount.
func (s Settlement) Direction() string {
	switch s.Amount.Sign() {
	case 1:
		return "self_owes_partner"
	case -1:
		return "partner_owes_self"
	default:
		return "balanced"
	}
}

// Month returns the calendar month this settlement covers.
func (s Settlement) Month() Month {
	return MonthOf(s.MonthStart.Time)
}
