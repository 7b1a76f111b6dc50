package handlers

import (
	"html/template"

	"github.com/gofiber/fiber/v2"
)

var legalPage = template.Must(template.New("legal").Parse(`<!DOCTYPE html>
<html><head><title>{{.Title}} - {{.AppName}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{font-family:-apple-system,BlinkMacSystemFont,sans-serif;max-width:800px;margin:0 auto;padding:20px;color:#333}h1{color:#1a1a1a}h2{color:#444;margin-top:30px}</style>
</head><body>
<h1>{{.Title}}</h1>
<p>Last updated: October 2026</p>
{{range .Sections}}<h2>{{.Heading}}</h2>
<p>{{.Body}}</p>
{{end}}<h2>Contact</h2>
<p>For questions, contact us at {{.SupportEmail}}</p>
</body></html>`))

type legalSection struct {
	Heading string
	Body    string
}

type LegalHandler struct {
	appName      string
	supportEmail string
}

func NewLegalHandler(appName, supportEmail string) *LegalHandler {
	return &LegalHandler{appName: appName, supportEmail: supportEmail}
}

func (h *LegalHandler) PrivacyPolicy(c *fiber.Ctx) error {
	return h.render(c, "Privacy Policy", []legalSection{
		{"Information We Collect", "We store your email address, the profile details you enter, your confession conversations and their karma assessments, and records of donations and subscriptions."},
		{"AI Processing", "Conversation text is sent to a third-party language model provider to generate replies, assessments and optional speech audio. It is not used by us for advertising."},
		{"Data Storage", "Your data is stored on encrypted servers. We do not sell your personal information to third parties."},
		{"Deleting Your Data", "You can delete single confessions, all confessions, or your whole account at any time. Deleting your account removes your profile, confessions, drafts and donation records."},
	})
}

func (h *LegalHandler) TermsOfService(c *fiber.Ctx) error {
	return h.render(c, "Terms of Service", []legalSection{
		{"Acceptance", "By using " + h.appName + ", you agree to these terms."},
		{"Nature of the Service", "Replies and karma scores are generated automatically for reflection only. They are not pastoral, medical or legal advice."},
		{"Subscriptions", "Free accounts may complete a limited number of confessions per day. Subscriptions remove the limit and are managed through the app store; access lasts until the end of the paid period after cancellation."},
		{"Termination", "We may suspend or terminate accounts that abuse the service."},
	})
}

func (h *LegalHandler) render(c *fiber.Ctx, title string, sections []legalSection) error {
	c.Type("html")
	return legalPage.Execute(c.Response().BodyWriter(), struct {
		Title        string
		AppName      string
		SupportEmail string
		Sections     []legalSection
	}{title, h.appName, h.supportEmail, sections})
}
