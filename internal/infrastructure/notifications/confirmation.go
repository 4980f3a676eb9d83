package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

const (
	confirmationSubject = "Your Appointment Confirmation"
	icsFilename         = "appointment.ics"
	icsContentType      = "text/calendar; charset=utf-8; method=PUBLISH"
	icsTimeLayout       = "20060102T150405Z"
)

var confirmationText = template.Must(template.New("text").Parse(`Hello {{.PatientName}},

Your appointment with {{.ProviderName}} has been confirmed for {{.When}}.
Please find the calendar invitation attached.

Thank you!
`))

var confirmationHTML = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
  <body style="font-family: Arial, sans-serif; color: #333; padding: 2em; background-color: white;">
    <div style="border: 1px solid #ddd">
      <div style="background-color: #8c00c8; padding: 0.5em 2em;">
        <h2 style="color: #ffffff;">Appointment Confirmed!</h2>
      </div>
      <div style="padding: 1em 2em;">
        <p>Hi <strong>{{.PatientName}}</strong>,</p>
        <p>Your appointment with <strong>{{.ProviderName}}</strong> is set for:</p>
        <table cellpadding="5" cellspacing="0" style="border: 1px solid #ddd; width: 90%;">
          <tr>
            <td style="background: #f3d8fec1; padding: 0.5em 0.7em;">When:</td>
            <td style="padding: 0.5em 0.7em;">{{.When}}</td>
          </tr>
          <tr>
            <td style="background: #f3d8fec1; padding: 0.5em 0.7em;">Notes:</td>
            <td style="padding: 0.5em 0.7em;">{{.Notes}}</td>
          </tr>
        </table>
        <p style="margin-top: 2.5em;">Download the attached <code>.ics</code> file to add it to your calendar.</p>
        <hr />
        <p style="font-size:0.8em;color:#8c00c8c1;">If you have any questions, just reply to this email.</p>
      </div>
    </div>
  </body>
</html>
`))

// ConfirmationRenderer builds booking confirmation messages
type ConfirmationRenderer struct {
	location   *time.Location
	senderName string
	now        func() time.Time
}

// NewConfirmationRenderer creates a renderer that shows times in location
func NewConfirmationRenderer(location *time.Location, senderName string) *ConfirmationRenderer {
	if location == nil {
		location = time.UTC
	}
	return &ConfirmationRenderer{location: location, senderName: senderName, now: time.Now}
}

// FormatSlot renders an interval as "Tuesday, 13 May 2025, 10:00 AM – 10:30 AM AEST"
func (r *ConfirmationRenderer) FormatSlot(interval entities.Interval) string {
	start := interval.Start.In(r.location)
	end := interval.End.In(r.location)
	return fmt.Sprintf("%s, %s – %s %s",
		start.Format("Monday, 02 January 2006"),
		start.Format("03:04 PM"),
		end.Format("03:04 PM"),
		start.Format("MST"),
	)
}

// Render builds the confirmation for appointment addressed to contactAddress
func (r *ConfirmationRenderer) Render(contactAddress string, appointment *entities.Appointment) (*entities.OutboundMessage, error) {
	notes := appointment.Notes
	if strings.TrimSpace(notes) == "" {
		notes = "None"
	}
	data := struct {
		PatientName  string
		ProviderName string
		When         string
		Notes        string
	}{
		PatientName:  appointment.Patient.Name,
		ProviderName: appointment.ProviderName,
		When:         r.FormatSlot(appointment.Interval),
		Notes:        notes,
	}

	var text bytes.Buffer
	if err := confirmationText.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render text body: %w", err)
	}
	var html bytes.Buffer
	if err := confirmationHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	return &entities.OutboundMessage{
		Type:     entities.NotificationBookingConfirmation,
		To:       contactAddress,
		FromName: r.senderName,
		Subject:  confirmationSubject,
		TextBody: text.String(),
		HTMLBody: html.String(),
		Attachments: []entities.Attachment{{
			Filename:    icsFilename,
			ContentType: icsContentType,
			Data:        r.BuildInvite(appointment),
		}},
	}, nil
}

// BuildInvite renders a single-event iCalendar document
func (r *ConfirmationRenderer) BuildInvite(appointment *entities.Appointment) []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Smart Scheduler//EN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + appointment.ID + "@smart-scheduler",
		"DTSTAMP:" + r.now().UTC().Format(icsTimeLayout),
		"DTSTART:" + appointment.Interval.Start.UTC().Format(icsTimeLayout),
		"DTEND:" + appointment.Interval.End.UTC().Format(icsTimeLayout),
		"SUMMARY:" + escapeICSText("Your doctor's appointment with "+appointment.ProviderName),
		"DESCRIPTION:" + escapeICSText(appointment.Notes),
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func escapeICSText(s string) string {
	return icsEscaper.Replace(s)
}
