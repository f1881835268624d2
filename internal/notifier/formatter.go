package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"WalletSentinel/internal/evaluator"
	"WalletSentinel/internal/model"
	"WalletSentinel/internal/watchlist"
)

const maxEvidenceLines = 8

func shortWallet(w string) string {
	if len(w) <= 12 {
		return w
	}
	return w[:6] + "…" + w[len(w)-4:]
}

func labels(ss []model.Strategy) string {
	if len(ss) == 0 {
		return "none"
	}
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// FormatThesis formats a wallet thesis into a Telegram message.
func FormatThesis(th *model.Thesis) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🔎 <b>WalletSentinel</b> | <code>%s</code>\n\n", html.EscapeString(shortWallet(th.Wallet))))
	b.WriteString(fmt.Sprintf("Strategy: <b>%s</b> (confidence %.0f%%)\n", th.Primary, th.Confidence*100))
	b.WriteString(fmt.Sprintf("Secondary: %s\n", labels(th.Secondary)))
	if th.PositionCount > 0 {
		b.WriteString(fmt.Sprintf("Positions analyzed: %d\n", th.PositionCount))
	}

	if len(th.Evidence) > 0 {
		b.WriteString("\n📈 <b>Evidence:</b>\n")
		for i, e := range th.Evidence {
			if i == maxEvidenceLines {
				b.WriteString(fmt.Sprintf("  … %d more\n", len(th.Evidence)-maxEvidenceLines))
				break
			}
			b.WriteString(fmt.Sprintf("  • %s\n", html.EscapeString(e)))
		}
	}

	if th.Reasoning != "" {
		b.WriteString(fmt.Sprintf("\n💡 %s\n", html.EscapeString(th.Reasoning)))
	}
	if len(th.SignalsToMonitor) > 0 {
		b.WriteString("\n👀 <b>Monitor:</b>\n")
		for _, s := range th.SignalsToMonitor {
			b.WriteString(fmt.Sprintf("  • %s\n", html.EscapeString(s)))
		}
	}
	if th.RiskAssessment != "" {
		b.WriteString(fmt.Sprintf("\n⚠️ %s\n", html.EscapeString(th.RiskAssessment)))
	}
	return b.String()
}

// FormatDrift formats a label change on a watched wallet.
func FormatDrift(d *watchlist.Drift) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔄 <b>Strategy drift</b> | <code>%s</code>\n\n", html.EscapeString(shortWallet(d.Wallet))))
	b.WriteString(fmt.Sprintf("%s (%.0f%%) → <b>%s</b> (%.0f%%)\n", d.From, d.FromConfidence*100, d.To, d.ToConfidence*100))
	b.WriteString(fmt.Sprintf("Previous label held for %d consecutive run(s)\n", d.StableRuns+1))
	return b.String()
}

// FormatWatchlist lists the watched wallets and their last labels.
func FormatWatchlist(states []model.WatchState) string {
	if len(states) == 0 {
		return "📋 Watchlist is empty"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Watchlist</b> (%d)\n\n", len(states)))
	for _, ws := range states {
		label := "not analyzed"
		if ws.LastPrimary != "" {
			label = fmt.Sprintf("%s %.0f%%, stable %d", ws.LastPrimary, ws.LastConfidence*100, ws.ConsecutiveStable)
		}
		when := "never"
		if !ws.LastAnalyzedAt.IsZero() {
			when = ws.LastAnalyzedAt.Format("2006-01-02 15:04")
		}
		b.WriteString(fmt.Sprintf("<code>%s</code>: %s (%s)\n", html.EscapeString(shortWallet(ws.Wallet)), label, when))
	}
	return b.String()
}

// FormatEvalSummary formats an evaluation report.
func FormatEvalSummary(r *evaluator.Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Eval report</b> | %s\n\n", r.CreatedAt.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Wallets: %d\n", len(r.Scores)))
	b.WriteString(fmt.Sprintf("Mean composite: %.3f\n", r.MeanComposite()))
	b.WriteString(fmt.Sprintf("Strategy accuracy: %.1f%%\n", r.StrategyAccuracy()*100))
	b.WriteString(fmt.Sprintf("Evidence recall: %.1f%%\n", r.MeanRecall()*100))

	var misses []string
	for _, s := range r.Scores {
		switch {
		case s.Err != "":
			misses = append(misses, fmt.Sprintf("  💥 <code>%s</code>: %s", html.EscapeString(shortWallet(s.Wallet)), html.EscapeString(s.Err)))
		case !s.Heuristic && !s.StrategyCorrect:
			misses = append(misses, fmt.Sprintf("  ❌ <code>%s</code>: %s, expected %s", html.EscapeString(shortWallet(s.Wallet)), s.Predicted, s.Actual))
		}
	}
	if len(misses) > 0 {
		b.WriteString("\n<b>Misses:</b>\n")
		b.WriteString(strings.Join(misses, "\n"))
		b.WriteString("\n")
	}

	if reg := r.Regression; reg != nil {
		b.WriteString(fmt.Sprintf("\n⚠️ <b>Regression:</b> %.3f → %.3f (%+.3f)\n", reg.PreviousBest, reg.Current, reg.Delta))
	}
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return strings.Join([]string{
		"🤖 <b>WalletSentinel commands</b>",
		"",
		"/analyze &lt;wallet&gt; - classify a wallet now",
		"/watch &lt;wallet&gt; - add a wallet to the watchlist",
		"/unwatch &lt;wallet&gt; - remove a wallet from the watchlist",
		"/watchlist - show watched wallets",
		"/eval - run the ground truth evaluation",
		"/help - this message",
	}, "\n")
}

// FormatError formats a failed command.
func FormatError(action string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s (%s)", html.EscapeString(action), html.EscapeString(err.Error()), time.Now().UTC().Format("15:04 MST"))
}
