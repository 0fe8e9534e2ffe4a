package overview

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/condenser/internal/application"
	"github.com/bnema/condenser/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const defaultTextWidth = 72

type RenderOptions struct {
	Now time.Time
	// TextWidth truncates entry text; zero uses the default.
	TextWidth int
}

func (o RenderOptions) textWidth() int {
	if o.TextWidth <= 0 {
		return defaultTextWidth
	}
	return o.TextWidth
}

// Render renders the home view.
func Render(ov application.Overview, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderOverview(ov, opts, s)
	})
}

func RenderCraving(detail application.CravingDetail, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderCraving(detail, opts, s)
	})
}

func RenderLobby(detail application.LobbyDetail, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderLobby(detail, s)
	})
}

func renderOverview(ov application.Overview, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Word Condenser"),
		s.header.Render(fmt.Sprintf("cravings: %d  groups: %d", len(ov.Cravings), len(ov.Lobbies))),
	}

	if len(ov.Cravings) == 0 {
		lines = append(lines, s.empty.Render("No cravings installed yet."))
	}
	for _, card := range ov.Cravings {
		lines = append(lines, s.section.Render(renderCravingCard(card, s)))
	}

	if len(ov.Lobbies) > 0 {
		lobbyLines := []string{s.title.Render("Groups")}
		for _, lobby := range ov.Lobbies {
			lobbyLines = append(lobbyLines, renderLobbyLine(lobby, s))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, lobbyLines...)))
	}

	if len(ov.Available) > 0 {
		available := []string{s.title.Render("Available from your groups")}
		for _, craving := range ov.Available {
			available = append(available, s.detail.Render(fmt.Sprintf("%s %s", craving.Recipe.Title, s.faint.Render("via "+lobbyNames(craving.Lobbies)))))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, available...)))
	}

	if disabled := disabledNames(ov.DisabledCravings, ov.DisabledLobbies); disabled != "" {
		lines = append(lines, s.section.Render(s.empty.Render("disabled: "+disabled)))
	}

	if !opts.Now.IsZero() && !ov.BuiltAt.IsZero() {
		lines = append(lines, s.section.Render(s.faint.Render("index built "+formatRelative(ov.BuiltAt, opts.Now))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderCravingCard(card application.CravingOverview, s styles) string {
	parts := []string{s.craving.Render(card.Title)}
	if card.Description != "" {
		parts = append(parts, s.detail.Render(card.Description))
	}

	if card.Err != "" {
		parts = append(parts, s.warning.Render("unavailable: "+card.Err))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	parts = append(parts, lipgloss.JoinHorizontal(
		lipgloss.Top,
		countCell("associations", card.Totals.Associations, card.New.Associations, s),
		"  ",
		countCell("offers", card.Totals.Offers, card.New.Offers, s),
		"  ",
		countCell("reflections", card.Totals.Reflections, card.New.Reflections, s),
		"  ",
		countCell("comments", card.Totals.Comments, card.New.Comments, s),
	))

	meta := "you are " + card.Nickname
	if len(card.Lobbies) > 0 {
		meta += " · shared in " + strings.Join(card.Lobbies, ", ")
	}
	parts = append(parts, s.faint.Render(meta))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func countCell(label string, total int, fresh int, s styles) string {
	cell := s.countKey.Render(label+":") + " " + s.countValue.Render(fmt.Sprintf("%d", total))
	if fresh > 0 {
		cell += " " + s.badge.Render(fmt.Sprintf("+%d", fresh))
	}
	return cell
}

func renderLobbyLine(lobby application.LobbyOverview, s styles) string {
	line := s.lobby.Render(lobby.Name) + " " + s.faint.Render(fmt.Sprintf("(%s)", plural(lobby.Cravings, "craving")))
	if lobby.Description != "" {
		line += " " + s.detail.Render(lobby.Description)
	}
	return line
}

func renderCraving(detail application.CravingDetail, opts RenderOptions, s styles) string {
	lines := []string{
		s.craving.Render(detail.Title),
	}
	if detail.Description != "" {
		lines = append(lines, s.detail.Render(detail.Description))
	}
	lines = append(lines, s.faint.Render("you are "+detail.Nickname))

	width := opts.textWidth()
	lines = append(lines,
		s.section.Render(renderEntries("Associations", detail.Associations, detail.New.Associations, true, width, opts.Now, s)),
		s.section.Render(renderEntries("Offers", detail.Offers, detail.New.Offers, true, width, opts.Now, s)),
		s.section.Render(renderEntries("Reflections", detail.Reflections, detail.New.Reflections, false, width, opts.Now, s)),
		s.section.Render(renderEntries("Anecdotes", detail.Anecdotes, 0, false, width, opts.Now, s)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderEntries(title string, entries []application.EntryView, fresh int, resonance bool, width int, now time.Time, s styles) string {
	heading := s.title.Render(title) + " " + s.header.Render(fmt.Sprintf("%d", len(entries)))
	if fresh > 0 {
		heading += " " + s.badge.Render(fmt.Sprintf("%d new", fresh))
	}
	lines := []string{heading}

	if len(entries) == 0 {
		lines = append(lines, s.empty.Render("nothing yet"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, entry := range entries {
		text := entry.Text
		if entry.Title != "" {
			text = entry.Title + ": " + text
		}
		line := s.detail.Render(domain.TruncateRunes(text, width))

		meta := []string{entry.Author}
		if !now.IsZero() && !entry.CreatedAt.IsZero() {
			meta = append(meta, formatRelative(entry.CreatedAt, now))
		}
		if entry.Comments > 0 {
			meta = append(meta, plural(entry.Comments, "comment"))
		}
		metaText := s.author.Render(strings.Join(meta, " · "))

		if resonance {
			marker := fmt.Sprintf("♥ %d", entry.Resonators)
			if entry.IResonated {
				marker = s.resonated.Render(marker)
			} else {
				marker = s.faint.Render(marker)
			}
			line = marker + " " + line
		}
		lines = append(lines, line+" "+metaText)
		if entry.Detail != "" {
			lines = append(lines, s.faint.Render("    "+domain.TruncateRunes(entry.Detail, width)))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderLobby(detail application.LobbyDetail, s styles) string {
	lines := []string{s.lobby.Render(detail.Name)}
	if detail.Description != "" {
		lines = append(lines, s.detail.Render(detail.Description))
	}
	if detail.UnenforcedRules != "" {
		lines = append(lines, s.faint.Render("rules: "+detail.UnenforcedRules))
	}
	lines = append(lines, s.faint.Render("invite: "+detail.InviteLink))

	recipes := []string{s.title.Render("Cravings") + " " + s.header.Render(fmt.Sprintf("%d", len(detail.Recipes)))}
	if len(detail.Recipes) == 0 {
		recipes = append(recipes, s.empty.Render("No cravings shared in this group yet."))
	}
	for _, recipe := range detail.Recipes {
		line := s.craving.Render(recipe.Title)
		if recipe.Installed {
			line += " " + s.badge.Render("[joined]")
		}
		recipes = append(recipes, line)
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, recipes...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func lobbyNames(refs []application.LobbyRef) string {
	seen := map[string]bool{}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		if seen[ref.Name] {
			continue
		}
		seen[ref.Name] = true
		names = append(names, ref.Name)
	}
	return strings.Join(names, ", ")
}

func disabledNames(groups ...[]application.DisabledCell) string {
	var names []string
	for _, cells := range groups {
		for _, cell := range cells {
			names = append(names, cell.Name)
		}
	}
	return strings.Join(names, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func formatRelative(at, now time.Time) string {
	if at.After(now) {
		return "just now"
	}

	elapsed := now.Sub(at)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return plural(int(elapsed.Minutes()), "minute") + " ago"
	case elapsed < 24*time.Hour:
		return plural(int(elapsed.Hours()), "hour") + " ago"
	}

	days := int(math.Floor(elapsed.Hours() / 24))
	if days < 30 {
		return plural(days, "day") + " ago"
	}
	return at.Format("02 Jan 2006")
}
