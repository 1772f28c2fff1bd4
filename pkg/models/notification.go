package models

// Well-known notification event keys. EventKeyStageEntry fires when an
// application enters a stage; the remaining keys are named domain events
// raised by the surrounding application.
const (
	EventKeyStageEntry       = "stage_entry"
	EventKeyDocumentVerified = "document_verified"
	EventKeyPaymentReceived  = "payment_received"
	EventKeyDecisionReleased = "decision_released"
)

// DeliveryChannel identifies a notification delivery mechanism. Delivery
// itself is owned by an external collaborator; the engine only routes.
type DeliveryChannel string

const (
	ChannelEmail DeliveryChannel = "email"
	ChannelSMS   DeliveryChannel = "sms"
	ChannelInApp DeliveryChannel = "in_app"
)

// NotificationTrigger binds an event on a stage to a message template and the
// channels it should go out on.
type NotificationTrigger struct {
	EventKey    string            `json:"event_key"    validate:"required"`
	TemplateKey string            `json:"template_key" validate:"required"`
	Channels    []DeliveryChannel `json:"channels"     validate:"required,min=1"`
}
