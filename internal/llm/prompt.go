package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"MarketLens/internal/model"
)

// DefaultSystemPrompt is used when configuration does not supply one.
const DefaultSystemPrompt = "You are an experienced equity analyst. Explain technical setups in plain language, " +
	"cover momentum, trend strength and risk, and never give personalised investment advice."

// AnalysisInput carries everything the analysis prompt embeds.
type AnalysisInput struct {
	Ticker          string
	Sector          string
	GoldenCrossDate string
	IncreasePercent float64
	RSIAtCross      *float64
	CurrentRSI      *float64
	Series          []model.IndicatorPoint
}

// BuildAnalysisPrompt renders the golden-cross analysis request.
func BuildAnalysisPrompt(system string, in AnalysisInput) (Prompt, error) {
	if system == "" {
		system = DefaultSystemPrompt
	}
	series, err := json.Marshal(in.Series)
	if err != nil {
		return Prompt{}, fmt.Errorf("marshal series: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze %s (sector: %s).\n", in.Ticker, orUnknown(in.Sector))
	fmt.Fprintf(&b, "A golden cross (50-day MA crossing above the 200-day MA) occurred on %s.\n", in.GoldenCrossDate)
	fmt.Fprintf(&b, "Price change since the cross: %s%%.\n", formatFloat(in.IncreasePercent))
	fmt.Fprintf(&b, "RSI(14) at the cross: %s. Current RSI(14): %s.\n", formatRSI(in.RSIAtCross), formatRSI(in.CurrentRSI))
	b.WriteString("Discuss whether the move is sustainable, what the RSI trend implies, and key levels to watch.\n")
	b.WriteString("Daily series (date, close, ma50, ma200, rsi14):\n")
	b.Write(series)

	return Prompt{System: system, User: b.String()}, nil
}

func formatRSI(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
