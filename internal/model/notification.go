package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// RecipientType selects whose notifications the widget shows.
type RecipientType string

const (
	RecipientUser  RecipientType = "USER"
	RecipientAdmin RecipientType = "ADMIN"
)

// ParseRecipientType maps a configured mode onto a RecipientType.
// Anything other than "ADMIN" is treated as USER.
func ParseRecipientType(s string) RecipientType {
	if strings.EqualFold(strings.TrimSpace(s), string(RecipientAdmin)) {
		return RecipientAdmin
	}
	return RecipientUser
}

// StatusRead is the server status string for an acknowledged notification.
const StatusRead = "READ"

// Text is a JSON scalar that decodes from a string, a number, or null.
// Receipt payload fields arrive as either depending on the serializer.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(data)
	return nil
}

// String returns the raw text.
func (t Text) String() string { return string(t) }

// ProductLine is one ordered product inside a receipt payload.
type ProductLine struct {
	ProductName Text `json:"product_name"`
	Quantity    Text `json:"quantity"`
	Price       Text `json:"price"`
	LineTotal   Text `json:"line_total,omitempty"`
}

// Payload is the structured receipt attached to an order notification.
// Which fields are populated depends on the recipient type.
type Payload struct {
	OrderID       int64         `json:"order_id,omitempty"`
	EventType     string        `json:"event_type,omitempty"`
	CustomerName  Text          `json:"customer_name,omitempty"`
	CustomerPhone Text          `json:"customer_phone,omitempty"`
	OwnerPhone    Text          `json:"owner_phone,omitempty"`
	TotalPrice    Text          `json:"total_price,omitempty"`
	Items         []ProductLine `json:"items,omitempty"`

	// End-user receipt.
	UserBillID    *int64 `json:"user_bill_id,omitempty"`
	DownloadURL   Text   `json:"download_url,omitempty"`
	DownloadLabel Text   `json:"download_label,omitempty"`

	// Admin receipt.
	AdminBillID *int64 `json:"admin_bill_id,omitempty"`
	BillURL     Text   `json:"bill_url,omitempty"`
	BillLabel   Text   `json:"bill_label,omitempty"`
}

// Notification is a client-side snapshot of a server notification.
type Notification struct {
	// ID is the server identifier.
	ID int64 `json:"id"`

	// OrderID links the notification to the order it reports on.
	OrderID int64 `json:"order_id,omitempty"`

	Title string `json:"title"`

	// Message is the plain-text body, shown only when the payload has no
	// product lines.
	Message string `json:"message"`

	// CreatedAt is the raw server timestamp.
	CreatedAt string `json:"created_at"`

	IsRead bool   `json:"is_read"`
	Status string `json:"status"`

	Payload *Payload `json:"payload,omitempty"`
}

// MarkedRead returns a copy of n acknowledged locally.
func (n Notification) MarkedRead() Notification {
	n.IsRead = true
	n.Status = StatusRead
	return n
}

// Recipient is the recipient descriptor sent with every request.
type Recipient struct {
	Type       RecipientType `json:"recipient_type"`
	Identifier string        `json:"recipient_identifier,omitempty"`
}

// UnreadCount is the unread-count endpoint response.
type UnreadCount struct {
	UnreadCount int    `json:"unread_count"`
	LatestID    *int64 `json:"latest_id"`
}

// Feed is the feed endpoint response.
type Feed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
	LatestID      *int64         `json:"latest_id"`
}

// MarkReadResult is the mark-read endpoint response.
type MarkReadResult struct {
	Updated     int `json:"updated"`
	UnreadCount int `json:"unread_count"`
}

// MarkAllReadResult is the mark-all-read endpoint response.
type MarkAllReadResult struct {
	Updated int `json:"updated"`
}
