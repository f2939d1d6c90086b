package analysis

// Result is the structured analysis shape persisted as JSON. Every field
// defaults to an empty list or null rather than being absent, so consumers
// never branch on a missing key.
type Result struct {
	Overview    Overview     `json:"overview"`
	Disputes    []Dispute    `json:"disputes"`
	CreditHacks []CreditHack `json:"creditHacks"`
	CreditCards []CreditCard `json:"creditCards"`
	SideHustles []SideHustle `json:"sideHustles"`
}

// Overview summarizes the report. Score is null unless the model returned a
// numeric value inside the valid FICO range.
type Overview struct {
	Score     *int     `json:"score"`
	Summary   string   `json:"summary"`
	Positives []string `json:"positives"`
	Negatives []string `json:"negatives"`
}

// Dispute is one recommended bureau dispute.
type Dispute struct {
	Bureau            string `json:"bureau"`
	AccountName       string `json:"accountName"`
	AccountNumber     string `json:"accountNumber"`
	IssueType         string `json:"issueType"`
	RecommendedAction string `json:"recommendedAction"`
}

// CreditHack is a score-improvement recommendation.
type CreditHack struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Timeframe   string `json:"timeframe"`
}

// CreditCard is a card recommendation matched to the report profile.
type CreditCard struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer"`
	ApprovalOdds string `json:"approvalOdds"`
	Reason       string `json:"reason"`
}

// SideHustle is an income recommendation.
type SideHustle struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	EarningPotential string `json:"earningPotential"`
}

// ScoreMin and ScoreMax bound the accepted credit score range, inclusive.
const (
	ScoreMin = 300
	ScoreMax = 850
)

// ValidScore reports whether s is a real credit score.
func ValidScore(s int) bool {
	return s >= ScoreMin && s <= ScoreMax
}

// EmptyResult returns a structurally complete Result with empty lists and a
// null score.
func EmptyResult() *Result {
	return &Result{
		Overview: Overview{
			Positives: []string{},
			Negatives: []string{},
		},
		Disputes:    []Dispute{},
		CreditHacks: []CreditHack{},
		CreditCards: []CreditCard{},
		SideHustles: []SideHustle{},
	}
}
