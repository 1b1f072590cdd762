package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/osa030/guessbox/internal/app/ledger"
	"github.com/osa030/guessbox/internal/app/round"
	"github.com/osa030/guessbox/internal/app/scoring"
	"github.com/osa030/guessbox/internal/domain/history"
	"github.com/osa030/guessbox/internal/domain/playlist"
	"github.com/osa030/guessbox/internal/domain/track"
)

var (
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	midStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	poorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	plainStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle = lipgloss.NewStyle().Width(8)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func bandStyle(b scoring.Band) lipgloss.Style {
	switch b {
	case scoring.BandGood:
		return goodStyle
	case scoring.BandMid:
		return midStyle
	case scoring.BandPoor:
		return poorStyle
	default:
		return plainStyle
	}
}

func renderScore(score int) string {
	return bandStyle(scoring.BandOf(score)).Render(humanize.Comma(int64(score)))
}

func percent(v float64) string {
	return fmt.Sprintf("%d%%", int(v*100+0.5))
}

func renderResult(t track.Track, r scoring.Result, elapsed time.Duration) string {
	verdict := "not quite"
	if r.IsCorrect {
		verdict = "correct!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score %s / %s  %s\n", renderScore(r.Score), humanize.Comma(scoring.MaxScore), verdict)
	fmt.Fprintf(&b, "  %s%s %s\n", labelStyle.Render("Title"), t.Name, dimStyle.Render(percent(r.TitleSimilarity)))
	fmt.Fprintf(&b, "  %s%s %s\n", labelStyle.Render("Artist"), t.PrimaryArtist(), dimStyle.Render(percent(r.ArtistSimilarity)))
	fmt.Fprintf(&b, "  %s%ss %s\n", labelStyle.Render("Time"), round.FormatElapsed(elapsed), dimStyle.Render("bonus "+percent(r.TimeBonus)))
	fmt.Fprintf(&b, "  %s%s\n", labelStyle.Render("Track"), t.URL())
	if u := t.AlbumURL(); u != "" {
		fmt.Fprintf(&b, "  %s%s\n", labelStyle.Render("Album"), u)
	}
	if u := t.ArtistURL(); u != "" {
		fmt.Fprintf(&b, "  %s%s\n", labelStyle.Render("Artist"), u)
	}
	return b.String()
}

func renderStats(s ledger.Stats) string {
	return fmt.Sprintf("%d rounds, %d correct, total %s, best %s",
		s.Rounds, s.Correct, humanize.Comma(int64(s.TotalScore)), renderScore(s.BestScore))
}

func renderHistory(entries []history.Entry, now time.Time) string {
	if len(entries) == 0 {
		return "No rounds played yet.\n"
	}

	var b strings.Builder
	for _, e := range entries {
		mark := " "
		if e.IsCorrect {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s %s %6s  %s - %s\n",
			dimStyle.Render(fmt.Sprintf("%-16s", humanize.RelTime(e.CompletedAt, now, "ago", "from now"))),
			mark, renderScore(e.Score), e.TrackName, e.ArtistName)
	}
	return b.String()
}

func renderPlaylists(playlists []playlist.Playlist) string {
	if len(playlists) == 0 {
		return "No playlists found.\n"
	}

	var b strings.Builder
	for _, p := range playlists {
		fmt.Fprintf(&b, "%s  %s %s\n", p.ID, plainStyle.Render(p.Name),
			dimStyle.Render(fmt.Sprintf("(%s tracks)", humanize.Comma(int64(p.TrackCount)))))
	}
	return b.String()
}

func renderError(msg string) string {
	return errorStyle.Render(msg)
}
