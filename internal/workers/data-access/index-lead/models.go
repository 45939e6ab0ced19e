package indexlead

import (
	"lead-capture/internal/models"
)

// Document is the analytics view of a lead. It carries no contact details.
type Document struct {
	SubmissionID     string               `json:"submission_id"`
	Industry         models.Industry      `json:"industry"`
	BusinessStage    models.BusinessStage `json:"business_stage"`
	MonthlyRevenue   float64              `json:"monthly_revenue"`
	MonthlyOrders    int                  `json:"monthly_orders"`
	LeadScore        int                  `json:"lead_score"`
	Tier             models.Tier          `json:"tier"`
	Demographic      int                  `json:"demographic"`
	Behavioral       int                  `json:"behavioral"`
	Fit              int                  `json:"fit"`
	Challenges       []models.Challenge   `json:"challenges"`
	MarketingConsent bool                 `json:"marketing_consent"`
	CreatedAt        string               `json:"created_at"`
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "submission_id":     {"type": "keyword"},
      "industry":          {"type": "keyword"},
      "business_stage":    {"type": "keyword"},
      "monthly_revenue":   {"type": "double"},
      "monthly_orders":    {"type": "integer"},
      "lead_score":        {"type": "integer"},
      "tier":              {"type": "keyword"},
      "demographic":       {"type": "integer"},
      "behavioral":        {"type": "integer"},
      "fit":               {"type": "integer"},
      "challenges":        {"type": "keyword"},
      "marketing_consent": {"type": "boolean"},
      "created_at":        {"type": "date"}
    }
  }
}`
