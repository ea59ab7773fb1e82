package bell

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/notification-bell/internal/render"
	"github.com/nhle/notification-bell/internal/theme"
)

// ReceiptItem wraps a receipt card so it can be used in a bubbles/list.
type ReceiptItem struct {
	Receipt render.Receipt
}

// FilterValue returns the string used for fuzzy filtering.
func (i ReceiptItem) FilterValue() string { return i.Receipt.Title }

// ReceiptDelegate draws receipt cards. Every card takes the same number
// of lines so the list can page them.
type ReceiptDelegate struct{}

// Height returns the number of lines each card takes.
func (d ReceiptDelegate) Height() int { return cardLines }

// Spacing returns the number of blank lines between cards.
func (d ReceiptDelegate) Spacing() int { return 1 }

// Update handles per-item messages (unused).
func (d ReceiptDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws one card.
func (d ReceiptDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(ReceiptItem)
	if !ok {
		return
	}

	card := Card(ri.Receipt, m.Width()-4)
	if index == m.Index() {
		card = theme.SelectedItemStyle.Render(card)
	} else {
		card = theme.ListItemStyle.Render(card)
	}
	fmt.Fprint(w, card)
}

// cardLines is the fixed height of a card: title, time, customer,
// products or message, total, phone, action.
const cardLines = 7

// Card renders r as plain terminal text, one fact per line. It is the
// terminal counterpart of the storefront receipt markup.
func Card(r render.Receipt, width int) string {
	title := theme.ReadTitleStyle.Render(r.Title)
	if r.Unread {
		title = theme.UnreadTitleStyle.Render("● " + r.Title)
	}

	lines := []string{
		title,
		theme.LabelStyle.Render(r.Time),
		row("Customer", r.Customer),
		productsLine(r),
		row("Total Price", "Rs "+r.Total),
		row(r.PhoneLabel, r.Phone),
		actionLine(r.Action),
	}

	style := lipgloss.NewStyle().MaxHeight(cardLines)
	if width > 0 {
		style = style.MaxWidth(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	return theme.LabelStyle.Render(label+": ") + value
}

func productsLine(r render.Receipt) string {
	if len(r.Products) == 0 {
		return r.Message
	}
	parts := make([]string, len(r.Products))
	for i, p := range r.Products {
		parts[i] = fmt.Sprintf("%s (Qty %s | Rs %s)", p.Name, p.Quantity, p.Price)
	}
	return strings.Join(parts, ", ")
}

func actionLine(a *render.Action) string {
	if a == nil {
		return ""
	}
	return theme.ActionStyle.Render(a.Label) + " " + theme.LabelStyle.Render(a.URL)
}
