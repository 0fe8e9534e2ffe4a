// Package notify surfaces notifications on the terminal running condenser watch.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bnema/condenser/internal/domain"
	"github.com/bnema/condenser/internal/ports"
	"github.com/charmbracelet/lipgloss"
)

const bell = "\a"

// Terminal prints in-app notifications to out. OS and systray notifications ring the
// terminal bell as well, since there is no desktop shell to hand them to.
type Terminal struct {
	out    io.Writer
	logger *slog.Logger
	mu     sync.Mutex

	title  lipgloss.Style
	urgent lipgloss.Style
	body   lipgloss.Style
}

var _ ports.Notifier = (*Terminal)(nil)

func NewTerminal(out io.Writer, logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Terminal{
		out:    out,
		logger: logger,
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		urgent: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		body:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}
}

func (t *Terminal) Notify(ctx context.Context, n domain.Notification, channels domain.ChannelSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.logger.Info("notification",
		"craving", n.Craving,
		"kind", n.Kind,
		"count", n.Count,
		"urgency", n.Urgency,
		"os", channels.OS,
		"systray", channels.Systray,
		"in_app", channels.InApp,
	)

	if !channels.InApp && !channels.OS && !channels.Systray {
		return nil
	}

	titleStyle := t.title
	if n.Urgency != domain.UrgencyLow {
		titleStyle = t.urgent
	}
	line := titleStyle.Render(n.Title) + " " + t.body.Render(n.Body)
	if channels.OS || channels.Systray {
		line = bell + line
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintln(t.out, line); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}
