package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fatflowers/lifecycle/internal/models"
	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var frenchMonths = [...]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"}

// frenchDate formats t as "5 mars 2025" in loc.
func frenchDate(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}

func cycleLabel(c types.BillingCycle) string {
	switch c {
	case types.BillingCycleMonthly:
		return "mensuel"
	case types.BillingCycleYearly:
		return "annuel"
	default:
		return string(c)
	}
}

type ReminderView struct {
	FullName        string
	PlanName        string
	BillingCycle    types.BillingCycle
	Amount          decimal.Decimal
	Currency        string
	NextBillingDate time.Time
}

// Renderer turns lifecycle records into ready-to-send messages.
type Renderer struct {
	tmpl         *template.Template
	loc          *time.Location
	frontendURL  string
	reminderFrom string
	alertFrom    string
}

func NewRenderer(cfg *cfgpkg.Config) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{
		tmpl:         tmpl,
		loc:          cfg.Location(),
		frontendURL:  strings.TrimSuffix(cfg.Email.FrontendURL, "/"),
		reminderFrom: cfg.Email.ReminderFrom,
		alertFrom:    cfg.Email.AlertFrom,
	}, nil
}

func (r *Renderer) Reminder(v ReminderView) (Message, error) {
	subject := fmt.Sprintf("🔔 Rappel: Votre abonnement %s sera renouvelé dans 3 jours", v.PlanName)
	name := v.FullName
	if name == "" {
		name = "cher client"
	}
	html, err := r.execute("reminder.html", map[string]any{
		"Subject":   subject,
		"FullName":  name,
		"PlanName":  v.PlanName,
		"Cycle":     cycleLabel(v.BillingCycle),
		"Amount":    v.Amount.StringFixed(2),
		"Currency":  v.Currency,
		"Date":      frenchDate(v.NextBillingDate, r.loc),
		"ManageURL": r.frontendURL + "/dashboard/subscription",
	})
	if err != nil {
		return Message{}, err
	}
	return Message{From: r.reminderFrom, Subject: subject, HTML: html}, nil
}

func (r *Renderer) JobAlert(d models.JobAlertData) (Message, error) {
	subject := fmt.Sprintf("Nouvelle offre d'emploi : %s chez %s", d.JobTitle, d.CompanyName)
	deadline := ""
	if d.ApplicationDeadline != nil {
		deadline = frenchDate(*d.ApplicationDeadline, r.loc)
	}
	html, err := r.execute("job_alert.html", map[string]any{
		"Subject":         subject,
		"JobTitle":        d.JobTitle,
		"CompanyName":     d.CompanyName,
		"WorkLocation":    d.WorkLocation,
		"WorkArrangement": d.WorkArrangement,
		"SalaryInfo":      d.SalaryInfo,
		"Deadline":        deadline,
		"JobURL":          r.frontendURL + "/jobs/" + url.PathEscape(d.JobID),
	})
	if err != nil {
		return Message{}, err
	}
	return Message{From: r.alertFrom, Subject: subject, HTML: html}, nil
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
