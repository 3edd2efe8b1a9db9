package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	TemplateConfirmation = "confirmation.html"
	TemplateAdminAlert   = "admin_alert.html"
	TemplateCancellation = "cancellation.html"
)

// Branding is the clinic identity printed in every email footer.
type Branding struct {
	Clinic       string
	ContactEmail string
	ContactPhone string
	Address      string
}

// DefaultBranding matches the clinic the service was built for.
var DefaultBranding = Branding{
	Clinic:       "HelseMed Care Norway",
	ContactEmail: "helsemed@icloud.com",
	ContactPhone: "+47-94080888",
	Address:      "Oberst Rodes vei 57A, 1152 Oslo",
}

type emailData struct {
	Branding
	BookingID    string
	PatientName  string
	PatientEmail string
	PatientPhone string
	Date         string
	Time         string
	Service      string
	Reason       string
}

func render(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
