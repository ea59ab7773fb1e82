package phoneform

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settle runs cmd and the messages it produces until the form reports
// back. Commands that take longer than a moment, like cursor blinks, are
// dropped.
func settle(t *testing.T, m Model, cmd tea.Cmd) (Model, tea.Msg) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 50; steps++ {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		done := make(chan tea.Msg, 1)
		go func() { done <- next() }()
		var msg tea.Msg
		select {
		case msg = <-done:
		case <-time.After(100 * time.Millisecond):
			continue
		}

		switch msg := msg.(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case SubmittedMsg, CancelMsg:
			return m, msg
		default:
			var c tea.Cmd
			m, c = m.Update(msg)
			queue = append(queue, c)
		}
	}
	return m, nil
}

func TestSubmitPrefilledPhone(t *testing.T) {
	m := New(80, 24)
	m.Start("9876543210")
	assert.Contains(t, m.View(), "Set Phone")
	assert.Contains(t, m.View(), "9876543210")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, msg := settle(t, m, cmd)

	assert.Equal(t, SubmittedMsg{Phone: "9876543210"}, msg)
	assert.Empty(t, m.View())
}

func TestInvalidPhoneIsNotSubmitted(t *testing.T) {
	m := New(80, 24)
	m.Start("12345")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m, msg := settle(t, m, cmd)

	assert.Nil(t, msg)
	assert.Contains(t, m.View(), "Set Phone")
}

func TestAbortCancels(t *testing.T) {
	m := New(80, 24)
	m.Start("")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestUpdateWithoutFormIsNoop(t *testing.T) {
	m := New(80, 24)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, next.View())
}
