package http

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
	"splitledger/internal/services"
)

// amountText accepts an amount as a JSON string or number and keeps its
// literal text so no float conversion happens.
type amountText string

func (a *amountText) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	*a = amountText(s)
	return nil
}

// optionalID tells an absent key apart from an explicit null.
type optionalID struct {
	Set   bool
	Value *int64
}

func (o *optionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// optionalAmount is an amount that may be explicitly null.
type optionalAmount struct {
	Set   bool
	Value *amountText
}

func (o *optionalAmount) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var a amountText
	if err := a.UnmarshalJSON(b); err != nil {
		return err
	}
	o.Value = &a
	return nil
}

type expenseRequest struct {
	Amount      amountText `json:"amount"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	PaidFrom    string     `json:"paidFrom"`
	CategoryID  *int64     `json:"categoryId"`
	Notes       string     `json:"notes"`
	Currency    string     `json:"currency"`
	Frequency   string     `json:"frequency"`
}

type expensePatchRequest struct {
	Amount      *amountText `json:"amount"`
	Description *string     `json:"description"`
	Date        *string     `json:"date"`
	PaidFrom    *string     `json:"paidFrom"`
	CategoryID  optionalID  `json:"categoryId"`
	Notes       *string     `json:"notes"`
	Currency    *string     `json:"currency"`
	IsRecurring *bool       `json:"isRecurring"`
	Frequency   *string     `json:"frequency"`
}

type expenseResponse struct {
	ID              int64     `json:"id"`
	Amount          string    `json:"amount"`
	Description     string    `json:"description"`
	Date            string    `json:"date"`
	PaidFrom        string    `json:"paidFrom"`
	CategoryID      *int64    `json:"categoryId"`
	Currency        string    `json:"currency"`
	IsRecurring     bool      `json:"isRecurring"`
	Frequency       string    `json:"frequency,omitempty"`
	NextDueDate     *string   `json:"nextDueDate"`
	IsAutoGenerated bool      `json:"isAutoGenerated"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toExpense(e core.Expense) expenseResponse {
	out := expenseResponse{
		ID:              e.ID,
		Amount:          core.FormatAmount(e.Amount),
		Description:     e.Description,
		Date:            e.Date.String(),
		PaidFrom:        string(e.PaidFrom),
		CategoryID:      e.CategoryID,
		Currency:        e.Currency,
		IsRecurring:     e.IsRecurring,
		Frequency:       string(e.Frequency),
		IsAutoGenerated: e.IsAutoGenerated,
		Notes:           e.Notes,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.NextDueDate != nil {
		s := e.NextDueDate.String()
		out.NextDueDate = &s
	}
	return out
}

func toExpenses(items []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toExpense(e))
	}
	return out
}

type expensePageResponse struct {
	Items      []expenseResponse `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

type generateRequest struct {
	Date string `json:"date"`
}

type generateResponse struct {
	Expense  expenseResponse `json:"expense"`
	Template expenseResponse `json:"template"`
}

type upcomingResponse struct {
	Template     expenseResponse `json:"template"`
	DaysUntilDue int             `json:"daysUntilDue"`
}

type splitConfigRequest struct {
	SelfPercent     amountText `json:"selfPercent"`
	PartnerPercent  amountText `json:"partnerPercent"`
	DefaultCurrency string     `json:"defaultCurrency"`
}

type splitConfigResponse struct {
	SelfPercent     string     `json:"selfPercent"`
	PartnerPercent  string     `json:"partnerPercent"`
	DefaultCurrency string     `json:"defaultCurrency"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

func toSplitConfig(c core.SplitConfig) splitConfigResponse {
	out := splitConfigResponse{
		SelfPercent:     c.SelfPercent.String(),
		PartnerPercent:  c.PartnerPercent.String(),
		DefaultCurrency: c.DefaultCurrency,
	}
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

type totalsResponse struct {
	Self    string `json:"self"`
	Partner string `json:"partner"`
	Joint   string `json:"joint"`
	Total   string `json:"total"`
}

func toTotals(t core.PaidFromTotals) totalsResponse {
	return totalsResponse{
		Self:    core.FormatAmount(t.Self),
		Partner: core.FormatAmount(t.Partner),
		Joint:   core.FormatAmount(t.Joint),
		Total:   core.FormatAmount(t.Total()),
	}
}

type settlementSummaryResponse struct {
	Month            string         `json:"month"`
	SelfPercent      string         `json:"selfPercent"`
	PartnerPercent   string         `json:"partnerPercent"`
	Totals           totalsResponse `json:"totals"`
	SplitTotal       string         `json:"splitTotal"`
	SelfShouldPay    string         `json:"selfShouldPay"`
	PartnerShouldPay string         `json:"partnerShouldPay"`
	Amount           string         `json:"amount"`
	Direction        string         `json:"direction"`
	ExpenseCount     int            `json:"expenseCount"`
	Settled          bool           `json:"settled"`
	SettledAt        *time.Time     `json:"settledAt"`
	Notes            string         `json:"notes,omitempty"`
}

func toSummary(s services.MonthSummary) settlementSummaryResponse {
	r := s.Result
	return settlementSummaryResponse{
		Month:            s.Month.String(),
		SelfPercent:      s.Split.SelfPercent.String(),
		PartnerPercent:   s.Split.PartnerPercent.String(),
		Totals:           toTotals(r.Totals),
		SplitTotal:       core.FormatAmount(r.SplitTotal),
		SelfShouldPay:    core.FormatAmount(r.SelfShouldPay),
		PartnerShouldPay: core.FormatAmount(r.PartnerShouldPay),
		Amount:           core.FormatAmount(r.Amount),
		Direction:        s.Direction(),
		ExpenseCount:     s.ExpenseCount,
		Settled:          s.Settled,
		SettledAt:        s.SettledAt,
		Notes:            s.Notes,
	}
}

type settleRequest struct {
	Notes string `json:"notes"`
}

type settlementResponse struct {
	ID        int64      `json:"id"`
	Month     string     `json:"month"`
	Amount    string     `json:"amount"`
	Direction string     `json:"direction"`
	Settled   bool       `json:"settled"`
	SettledAt *time.Time `json:"settledAt"`
	Notes     string     `json:"notes,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func toSettlement(s core.Settlement) settlementResponse {
	return settlementResponse{
		ID:        s.ID,
		Month:     s.Month().String(),
		Amount:    core.FormatAmount(s.Amount),
		Direction: s.Direction(),
		Settled:   s.Settled,
		SettledAt: s.SettledAt,
		Notes:     s.Notes,
		UpdatedAt: s.UpdatedAt,
	}
}

type categoryRequest struct {
	Name          string      `json:"name"`
	Color         string      `json:"color"`
	MonthlyBudget *amountText `json:"monthlyBudget"`
}

type categoryPatchRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

type budgetRequest struct {
	MonthlyBudget optionalAmount `json:"monthlyBudget"`
}

type categoryResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Color         string    `json:"color,omitempty"`
	MonthlyBudget *string   `json:"monthlyBudget"`
	CreatedAt     time.Time `json:"createdAt"`
}

func formatOptional(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := core.FormatAmount(*d)
	return &s
}

func toCategory(c core.Category) categoryResponse {
	return categoryResponse{
		ID:            c.ID,
		Name:          c.Name,
		Color:         c.Color,
		MonthlyBudget: formatOptional(c.MonthlyBudget),
		CreatedAt:     c.CreatedAt,
	}
}

type categoryBudgetResponse struct {
	Category categoryResponse `json:"category"`
	Spent    string           `json:"spent"`
	Budget   *string          `json:"budget"`
}

type monthTotalsResponse struct {
	Month  string         `json:"month"`
	Totals totalsResponse `json:"totals"`
}

type categorySpendResponse struct {
	CategoryID int64   `json:"categoryId"`
	Name       string  `json:"name"`
	Spent      string  `json:"spent"`
	Budget     *string `json:"budget"`
}

type categoryAmountResponse struct {
	CategoryID int64  `json:"categoryId"`
	Name       string `json:"name"`
	Amount     string `json:"amount"`
}

type weekdayResponse struct {
	Weekday string `json:"weekday"`
	Total   string `json:"total"`
	Count   int    `json:"count"`
	Average string `json:"average"`
}

type insightsResponse struct {
	Month          string                   `json:"month"`
	CurrentTotal   string                   `json:"currentTotal"`
	PreviousTotal  string                   `json:"previousTotal"`
	PercentChange  string                   `json:"percentChange"`
	Trend          string                   `json:"trend"`
	TopCategories  []categoryAmountResponse `json:"topCategories"`
	ByWeekday      []weekdayResponse        `json:"byWeekday"`
	Largest        *expenseResponse         `json:"largest"`
	AverageExpense string                   `json:"averageExpense"`
	ExpenseCount   int                      `json:"expenseCount"`
}

func toInsights(in services.Insights) insightsResponse {
	out := insightsResponse{
		Month:          in.CurrentMonth.String(),
		CurrentTotal:   core.FormatAmount(in.CurrentTotal),
		PreviousTotal:  core.FormatAmount(in.PreviousTotal),
		PercentChange:  in.PercentChange.StringFixed(2),
		Trend:          in.Trend,
		TopCategories:  make([]categoryAmountResponse, 0, len(in.TopCategories)),
		ByWeekday:      make([]weekdayResponse, 0, len(in.ByWeekday)),
		AverageExpense: core.FormatAmount(in.AverageExpense),
		ExpenseCount:   in.ExpenseCount,
	}
	for _, c := range in.TopCategories {
		out.TopCategories = append(out.TopCategories, categoryAmountResponse{
			CategoryID: c.CategoryID, Name: c.Name, Amount: core.FormatAmount(c.Amount),
		})
	}
	for _, wd := range in.ByWeekday {
		out.ByWeekday = append(out.ByWeekday, weekdayResponse{
			Weekday: wd.Weekday.String(),
			Total:   core.FormatAmount(wd.Total),
			Count:   wd.Count,
			Average: core.FormatAmount(wd.Average),
		})
	}
	if in.Largest != nil {
		e := toExpense(*in.Largest)
		out.Largest = &e
	}
	return out
}

type exportRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type exportResponse struct {
	Range string `json:"range"`
	Rows  int    `json:"rows"`
}
