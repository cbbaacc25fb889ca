package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"FundPilot/internal/asset"
	"FundPilot/internal/model"
	"FundPilot/internal/pipeline"
	"FundPilot/internal/recorder"
)

const divider = "━━━━━━━━━━━━━━\n"

// FormatDecisionReport formats a decision run into one Telegram message.
func FormatDecisionReport(rep *pipeline.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>FundPilot 定投决策</b> | %s\n", rep.StartedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("🌐 %s（%s）\n\n", html.EscapeString(rep.Market.Summary()), rep.Market.Mood()))

	counts := map[model.Decision]int{}
	failed := 0
	for _, res := range rep.Results {
		b.WriteString(divider)
		if !res.OK() {
			failed++
			b.WriteString(fmt.Sprintf("❌ <b>%s</b> (%s)\n处理失败: %s\n",
				html.EscapeString(res.Fund.DisplayName()), res.Fund.Code, html.EscapeString(res.Err.Error())))
			continue
		}
		counts[res.Decision.Final]++
		writeFund(&b, res)
	}
	b.WriteString(divider)

	b.WriteString(fmt.Sprintf("汇总: %s%d %s%d %s%d %s%d",
		model.DoubleBuy.Emoji(), counts[model.DoubleBuy],
		model.NormalBuy.Emoji(), counts[model.NormalBuy],
		model.Hold.Emoji(), counts[model.Hold],
		model.StopBuy.Emoji(), counts[model.StopBuy]))
	if failed > 0 {
		b.WriteString(fmt.Sprintf(" | 失败 %d", failed))
	}
	b.WriteString("\n")
	return b.String()
}

func writeFund(b *strings.Builder, res pipeline.FundResult) {
	d := res.Decision
	m := res.Metrics

	b.WriteString(fmt.Sprintf("%s <b>%s</b> (%s)\n", d.Final.Emoji(), html.EscapeString(res.Fund.DisplayName()), res.Fund.Code))
	b.WriteString(fmt.Sprintf("决策: <b>%s</b> · 信心 %s (%.0f%%) · 建议倍数 %.1fx\n",
		d.Final.Label(), d.Confidence.Label(), d.ConfidenceScore*100, res.Multiplier))
	if v := res.Valuation; v != nil {
		b.WriteString(fmt.Sprintf("估值: %.4f (%+.2f%%) @ %s\n", v.EstimateNAV, v.EstimateChange, v.EstimateTime.Format("15:04")))
	}
	b.WriteString(fmt.Sprintf("分位 60/250/500: %.0f / %.0f / %.0f · %s\n",
		m.Percentile60, m.Percentile250, m.Percentile500, d.Quant.Zone.Label()))
	b.WriteString(fmt.Sprintf("均线偏离: %+.2f%% · 波动率 %.1f%% · 回撤 %.1f%%\n", m.MADeviation, m.Volatility60, m.Drawdown250))
	if h := res.Holdings; h != nil && len(h.Holdings) > 0 {
		b.WriteString(fmt.Sprintf("📦 持仓: %s\n", html.EscapeString(h.Summary)))
		if len(h.TopGainers) > 0 {
			b.WriteString(fmt.Sprintf("领涨: %s\n", html.EscapeString(strings.Join(h.TopGainers, "、"))))
		}
		if len(h.TopLosers) > 0 {
			b.WriteString(fmt.Sprintf("领跌: %s\n", html.EscapeString(strings.Join(h.TopLosers, "、"))))
		}
	}

	quant := fmt.Sprintf("量化: %s (%.0f%%)", d.Quant.Decision.Label(), d.Quant.Confidence*100)
	if d.Advice != nil {
		quant += fmt.Sprintf(" | AI: %s (%.0f%%)", d.Advice.Decision.Label(), d.Advice.Confidence*100)
	}
	b.WriteString(quant + "\n")
	b.WriteString(fmt.Sprintf("方法: %s\n", d.Method))
	if d.Rationale != "" {
		b.WriteString(fmt.Sprintf("理由: %s\n", html.EscapeString(d.Rationale)))
	}
	for _, w := range d.Warnings {
		b.WriteString(html.EscapeString(w) + "\n")
	}
}

// FormatAlert formats the intraday estimate digest.
func FormatAlert(items []pipeline.AlertItem, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⏰ <b>盘中估值</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	for _, it := range items {
		name := html.EscapeString(it.Fund.DisplayName())
		if it.Err != nil || it.Valuation == nil {
			b.WriteString(fmt.Sprintf("❌ %s: 估值获取失败\n", name))
			continue
		}
		arrow := "🔺"
		if it.Valuation.EstimateChange < 0 {
			arrow = "🔻"
		}
		b.WriteString(fmt.Sprintf("%s %s: %+.2f%% (%.4f)\n", arrow, name, it.Valuation.EstimateChange, it.Valuation.EstimateNAV))
	}
	b.WriteString("\n14:45 将发送定投决策")
	return b.String()
}

// FormatError formats a system failure notice.
func FormatError(msg string) string {
	return fmt.Sprintf("🚨 <b>FundPilot 异常</b>\n\n%s\n\n请检查系统日志。", html.EscapeString(msg))
}

// FormatRecent lists the latest logged decisions.
func FormatRecent(recs []recorder.DecisionRecord) string {
	if len(recs) == 0 {
		return "暂无决策记录"
	}
	var b strings.Builder
	b.WriteString("🗂 <b>最近决策</b>\n\n")
	for _, r := range recs {
		d := r.Decision
		b.WriteString(fmt.Sprintf("%s %s %s · %s (分位 %.0f)\n",
			r.RecordedAt.Format("01-02 15:04"), d.Final.Emoji(), html.EscapeString(d.FundName), d.Final.Label(), r.Percentile250))
	}
	return b.String()
}

// FormatFunds lists the tracked funds and their resolved classes.
func FormatFunds(funds []model.Fund) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>跟踪基金</b> (%d)\n\n", len(funds)))
	for _, f := range funds {
		b.WriteString(fmt.Sprintf("• %s (%s) · %s\n", html.EscapeString(f.DisplayName()), f.Code, asset.Resolve(f).Label()))
	}
	return b.String()
}
