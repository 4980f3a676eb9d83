package entities

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationBookingConfirmation NotificationType = "booking_confirmation"
)

// Attachment is a file carried by an outbound message
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// OutboundMessage is a rendered message ready for delivery
type OutboundMessage struct {
	Type        NotificationType `json:"type"`
	To          string           `json:"to"`
	FromName    string           `json:"from_name"`
	Subject     string           `json:"subject"`
	TextBody    string           `json:"text_body"`
	HTMLBody    string           `json:"html_body"`
	Attachments []Attachment     `json:"attachments,omitempty"`
}
