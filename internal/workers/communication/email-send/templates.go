package emailsend

import (
	_ "embed"
	"fmt"
	"html/template"
	"math"
	"strings"
	texttemplate "text/template"
	"time"

	"lead-capture/internal/models"
	scorelead "lead-capture/internal/workers/roi/score-lead"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalog struct {
	Customer messageCopy `yaml:"customer"`
	Sales    messageCopy `yaml:"sales"`
}

type messageCopy struct {
	Subject   string            `yaml:"subject"`
	Body      string            `yaml:"body"`
	TierNotes map[string]string `yaml:"tier_notes"`
}

type compiled struct {
	subject   *texttemplate.Template
	body      *template.Template
	tierNotes map[string]string
}

// Renderer turns a notification job into customer and sales messages.
type Renderer struct {
	customer    compiled
	sales       compiled
	calendarURL string
}

func NewRenderer(calendarURL string) (*Renderer, error) {
	var c catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("failed to parse email catalog: %w", err)
	}

	customer, err := compile("customer", c.Customer)
	if err != nil {
		return nil, err
	}
	sales, err := compile("sales", c.Sales)
	if err != nil {
		return nil, err
	}
	return &Renderer{customer: customer, sales: sales, calendarURL: calendarURL}, nil
}

func compile(name string, mc messageCopy) (compiled, error) {
	subject, err := texttemplate.New(name + "-subject").Option("missingkey=error").Parse(mc.Subject)
	if err != nil {
		return compiled{}, fmt.Errorf("failed to parse %s subject: %w", name, err)
	}
	body, err := template.New(name + "-body").Option("missingkey=error").Parse(mc.Body)
	if err != nil {
		return compiled{}, fmt.Errorf("failed to parse %s body: %w", name, err)
	}
	return compiled{subject: subject, body: body, tierNotes: mc.TierNotes}, nil
}

type scenarioRow struct {
	Name            string
	MonthlyRevenue  string
	MonthlyIncrease string
	AnnualBenefit   string
	ROIPercentage   int
	BreakEvenMonths int
}

type templateData struct {
	SubmissionID     string
	SubmittedAt      string
	FirstName        string
	FullName         string
	Email            string
	Phone            string
	Website          string
	BusinessName     string
	MarketingConsent bool
	Industry         string
	BusinessStage    string
	MonthlyRevenue   string
	ManualHours      int
	Challenges       string
	ChallengesOther  string
	Scenarios        []scenarioRow
	ExpectedAnnual   string
	Score            int
	Demographic      int
	Behavioral       int
	Fit              int
	Tier             string
	TierNote         string
	FollowUp         string
	CalendarURL      string
}

func (r *Renderer) CustomerConfirmation(job *models.NotificationJob) (*Input, error) {
	data := r.data(job)
	data.TierNote = r.customer.tierNotes[data.Tier]

	in, err := render(r.customer, data)
	if err != nil {
		return nil, err
	}
	in.To = []string{job.Submission.Email}
	in.Tags = map[string]string{"type": "customer_confirmation", "tier": data.Tier}
	return in, nil
}

func (r *Renderer) SalesNotification(job *models.NotificationJob, recipients []string) (*Input, error) {
	data := r.data(job)

	in, err := render(r.sales, data)
	if err != nil {
		return nil, err
	}
	in.To = recipients
	in.ReplyTo = job.Submission.Email
	in.Tags = map[string]string{"type": "sales_notification", "tier": data.Tier}
	return in, nil
}

func render(c compiled, data templateData) (*Input, error) {
	var subject, body strings.Builder
	if err := c.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := c.body.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}
	text, err := htmlToText(body.String())
	if err != nil {
		return nil, err
	}
	return &Input{Subject: subject.String(), HTML: body.String(), Text: text}, nil
}

func (r *Renderer) data(job *models.NotificationJob) templateData {
	s := job.Submission
	p := job.Projection

	challenges := make([]string, 0, len(s.Challenges))
	for _, c := range s.Challenges {
		challenges = append(challenges, string(c))
	}

	return templateData{
		SubmissionID:     job.SubmissionID,
		SubmittedAt:      job.CreatedAt,
		FirstName:        s.FirstName,
		FullName:         s.FullName(),
		Email:            s.Email,
		Phone:            s.Phone,
		Website:          s.Website,
		BusinessName:     s.BusinessName,
		MarketingConsent: s.MarketingConsent,
		Industry:         string(s.Industry),
		BusinessStage:    string(s.BusinessStage),
		MonthlyRevenue:   money(s.MonthlyRevenue),
		ManualHours:      s.ManualHoursPerWeek,
		Challenges:       strings.Join(challenges, ", "),
		ChallengesOther:  s.ChallengesOther,
		Scenarios: []scenarioRow{
			row("Conservative", p.Conservative),
			row("Expected", p.Expected),
			row("Optimistic", p.Optimistic),
		},
		ExpectedAnnual: money(p.Expected.AnnualBenefit),
		Score:          job.Score.Total,
		Demographic:    job.Score.Demographic,
		Behavioral:     job.Score.Behavioral,
		Fit:            job.Score.Fit,
		Tier:           string(job.Score.Tier),
		FollowUp:       hours(scorelead.FollowUpFor(job.Score.Tier).Within),
		CalendarURL:    r.calendarURL,
	}
}

func row(name string, s models.Scenario) scenarioRow {
	return scenarioRow{
		Name:            name,
		MonthlyRevenue:  money(s.MonthlyRevenue),
		MonthlyIncrease: money(s.MonthlyIncrease),
		AnnualBenefit:   money(s.AnnualBenefit),
		ROIPercentage:   s.ROIPercentage,
		BreakEvenMonths: s.BreakEvenMonths,
	}
}

// money rounds to whole dollars for display.
func money(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func hours(d time.Duration) string {
	h := int(d.Hours())
	if h == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", h)
}

// htmlToText produces the plain text alternative: one line per heading,
// paragraph, list item or table row, with link targets spelled out.
func htmlToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("head,script,style").Remove()

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := normalizeSpaces(a.Text())
		if href != "" && href != text {
			a.SetText(fmt.Sprintf("%s (%s)", text, href))
		}
	})

	var lines []string
	doc.Find("h1,h2,h3,p,li,tr").Each(func(_ int, s *goquery.Selection) {
		var line string
		switch goquery.NodeName(s) {
		case "tr":
			var cells []string
			s.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			line = strings.Join(cells, " | ")
		case "li":
			line = "- " + normalizeSpaces(s.Text())
		default:
			line = normalizeSpaces(s.Text())
		}
		if strings.TrimSpace(strings.TrimPrefix(line, "-")) != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n"), nil
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
