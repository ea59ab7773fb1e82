// Package render turns widget state into receipt cards, for the
// storefront markup and for the terminal panel.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/notification-bell/internal/model"
)

// MaxBadge is the largest count shown as a number.
const MaxBadge = 99

// Admin billing pages used when a receipt carries no bill_url.
const (
	adminBillPath    = "/admin-dashboard/billing/%d/"
	adminBillingList = "/admin-dashboard/billing/"
)

// Badge returns the badge text for count and whether it is shown at all.
func Badge(count int) (text string, visible bool) {
	if count <= 0 {
		return "0", false
	}
	if count > MaxBadge {
		return strconv.Itoa(MaxBadge) + "+", true
	}
	return strconv.Itoa(count), true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// HumanTime formats a server timestamp in local time. Empty or
// unparsable input yields "".
func HumanTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Local().Format("02 Jan 2006, 15:04")
		}
	}
	return ""
}

// Product is one product line of a receipt.
type Product struct {
	Name     string
	Quantity string
	Price    string
}

// Action is the link at the bottom of a receipt.
type Action struct {
	Label string
	URL   string

	// External links open in a new tab.
	External bool
}

// Receipt is the view model of one notification card.
type Receipt struct {
	ID     int64
	Title  string
	Time   string
	Unread bool

	Customer   string
	Products   []Product
	Total      string
	PhoneLabel string
	Phone      string

	// Message is set only when there are no product lines.
	Message string

	Action *Action
}

// BuildReceipt maps n onto the card shown in mode.
func BuildReceipt(mode model.RecipientType, n model.Notification) Receipt {
	p := model.Payload{}
	if n.Payload != nil {
		p = *n.Payload
	}

	r := Receipt{
		ID:       n.ID,
		Title:    n.Title,
		Time:     HumanTime(n.CreatedAt),
		Unread:   !n.IsRead,
		Customer: orDefault(p.CustomerName, "N/A"),
		Total:    orDefault(p.TotalPrice, "-"),
	}

	for _, line := range p.Items {
		r.Products = append(r.Products, Product{
			Name:     line.ProductName.String(),
			Quantity: line.Quantity.String(),
			Price:    line.Price.String(),
		})
	}
	if len(r.Products) == 0 {
		r.Message = n.Message
	}

	if mode == model.RecipientAdmin {
		r.PhoneLabel = "Customer Phone"
		r.Phone = orDefault(p.CustomerPhone, "-")
		r.Action = &Action{Label: orDefault(p.BillLabel, "Bill"), URL: billURL(p)}
		return r
	}

	r.PhoneLabel = "Delivery Contact"
	r.Phone = orDefault(p.OwnerPhone, "-")
	if u := strings.TrimSpace(p.DownloadURL.String()); u != "" {
		r.Action = &Action{Label: orDefault(p.DownloadLabel, "Download"), URL: u, External: true}
	}
	return r
}

func billURL(p model.Payload) string {
	if u := strings.TrimSpace(p.BillURL.String()); u != "" {
		return u
	}
	if p.AdminBillID != nil && *p.AdminBillID > 0 {
		return fmt.Sprintf(adminBillPath, *p.AdminBillID)
	}
	return adminBillingList
}

func orDefault(t model.Text, fallback string) string {
	if s := strings.TrimSpace(t.String()); s != "" {
		return s
	}
	return fallback
}
