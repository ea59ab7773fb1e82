package render

import (
	"html/template"
	"io"

	"github.com/nhle/notification-bell/internal/model"
	"github.com/nhle/notification-bell/internal/widget"
)

const (
	// SetPhoneAction marks the call-to-action button shown to a USER
	// without a phone number.
	SetPhoneAction = "set-phone"

	needsPhoneText = "Add your phone number to view notifications."
	emptyText      = "No notifications yet."
	errorPrefix    = "Unable to load notifications: "
)

var templates = template.Must(template.New("widget").Parse(`
{{- define "receipt" -}}
<article class="thn-item{{if .Unread}} unread{{end}}" data-id="{{.ID}}">
  <p class="thn-item-title">{{.Title}}</p>
  <p class="thn-item-time">{{.Time}}</p>
  <div class="thn-receipt">
    <div class="thn-meta-row"><span>Customer</span><strong>{{.Customer}}</strong></div>
    {{- if .Products}}
    <div class="thn-products">
      {{- range .Products}}
      <div class="thn-product">
        <span class="thn-product-name">{{.Name}}</span>
        <span class="thn-product-meta">Qty {{.Quantity}} | Rs {{.Price}}</span>
      </div>
      {{- end}}
    </div>
    {{- end}}
    <div class="thn-meta-row"><span>Total Price</span><strong>Rs {{.Total}}</strong></div>
    <div class="thn-meta-row"><span>{{.PhoneLabel}}</span><strong>{{.Phone}}</strong></div>
    {{- if not .Products}}
    <p class="thn-item-msg">{{.Message}}</p>
    {{- end}}
    {{- with .Action}}
    <div class="thn-actions"><a class="thn-action-btn" href="{{.URL}}"{{if .External}} target="_blank" rel="noopener"{{end}}>{{.Label}}</a></div>
    {{- end}}
  </div>
</article>
{{- end}}

{{- define "list" -}}
<div class="thn-list">
{{- if .NeedsPhone}}
  <div class="thn-empty">
    <p>{{.NeedsPhoneText}}</p>
    <button type="button" data-thn-action="{{.SetPhoneAction}}">Set Phone</button>
  </div>
{{- else if .Error}}
  <div class="thn-empty">{{.Error}}</div>
{{- else if not .Receipts}}
  <div class="thn-empty">{{.EmptyText}}</div>
{{- else}}
  {{- range .Receipts}}
  {{template "receipt" .}}
  {{- end}}
{{- end}}
</div>
{{- end}}

{{- define "widget" -}}
<div class="thn-root{{if .Open}} open{{end}}" data-widget-id="{{.WidgetID}}">
  <button type="button" class="thn-btn" title="Notifications" aria-label="Notifications">
    &#128276;
    <span class="thn-count"{{if not .BadgeVisible}} hidden{{end}}>{{.Badge}}</span>
  </button>
  <section class="thn-panel" aria-live="polite"{{if not .Open}} hidden{{end}}>
    <header class="thn-head"><h3>Notifications</h3></header>
    {{template "list" .List}}
  </section>
</div>
{{- end}}
`))

type listView struct {
	NeedsPhone     bool
	NeedsPhoneText string
	SetPhoneAction string
	Error          string
	EmptyText      string
	Receipts       []Receipt
}

type widgetView struct {
	WidgetID     string
	Open         bool
	Badge        string
	BadgeVisible bool
	List         listView
}

func newListView(s widget.Snapshot) listView {
	v := listView{
		NeedsPhoneText: needsPhoneText,
		SetPhoneAction: SetPhoneAction,
		EmptyText:      emptyText,
	}
	switch s.Feed {
	case widget.FeedNeedsIdentifier:
		v.NeedsPhone = true
	case widget.FeedFailed:
		v.Error = errorPrefix + s.FeedError
	default:
		v.Receipts = Receipts(s.Mode, s.Items)
	}
	return v
}

// Receipts builds the cards for items in order.
func Receipts(mode model.RecipientType, items []model.Notification) []Receipt {
	out := make([]Receipt, 0, len(items))
	for _, n := range items {
		out = append(out, BuildReceipt(mode, n))
	}
	return out
}

// ListMessage returns the text that replaces the list, or "" when the
// list shows receipts.
func ListMessage(s widget.Snapshot) string {
	switch {
	case s.Feed == widget.FeedNeedsIdentifier:
		return needsPhoneText
	case s.Feed == widget.FeedFailed:
		return errorPrefix + s.FeedError
	case len(s.Items) == 0:
		return emptyText
	}
	return ""
}

// ReceiptHTML writes the card markup for n. All notification text is escaped.
func ReceiptHTML(w io.Writer, mode model.RecipientType, n model.Notification) error {
	return templates.ExecuteTemplate(w, "receipt", BuildReceipt(mode, n))
}

// List writes the list area for s.
func List(w io.Writer, s widget.Snapshot) error {
	return templates.ExecuteTemplate(w, "list", newListView(s))
}

// Widget writes the full widget: bell button, badge and panel.
func Widget(w io.Writer, s widget.Snapshot) error {
	badge, visible := Badge(s.UnreadCount)
	return templates.ExecuteTemplate(w, "widget", widgetView{
		WidgetID:     s.WidgetID,
		Open:         s.Open,
		Badge:        badge,
		BadgeVisible: visible,
		List:         newListView(s),
	})
}
