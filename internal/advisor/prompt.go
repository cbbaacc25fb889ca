package advisor

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"FundPilot/internal/asset"
	"FundPilot/internal/calculator"
	"FundPilot/internal/model"
)

const outputFormat = `
## 输出格式要求
请严格按以下格式输出，保持简洁：

1. 【决策】：[双倍补仓 / 正常定投 / 暂停定投 / 观望] 之一
2. 【信心度】：[0-100]% （如：80%）
3. 【核心理由】：
   ① [第一个核心观点，一句话]
   ② [第二个核心观点，一句话]
   ③ [第三个核心观点，一句话]（如有需要）

注意：信心度请用百分比表示；核心理由分点列出，每点一句话，最多3-4点。`

// SystemPrompt returns the class-specialised instructions. maTh and dropTh are
// the dynamic reference thresholds shown to income advisors.
func SystemPrompt(class asset.Class, maTh, dropTh float64) string {
	var b strings.Builder
	switch class {
	case asset.HedgeCommodity:
		b.WriteString(`你是一位拥有20年贵金属投资经验的资深投资顾问。

## 背景信息
你正在分析一只黄金ETF联接基金的定投决策。黄金是传统避险资产，其投资逻辑与普通权益类资产存在本质差异。

## 分析要求
请基于提供的量化数据和市场环境独立分析，关注避险属性、通胀对冲与美元相关性。`)
	case asset.CyclicalCommodity:
		b.WriteString(`你是一位深耕大宗商品和周期股投资的资深投资顾问。

## 背景信息
你正在分析一只有色金属/工业周期ETF联接基金的定投决策。周期类资产需要逆向思维和周期视角。

## 分析要求
请基于提供的量化数据和市场环境独立分析，在市场悲观时保持冷静，在市场狂热时保持警惕。`)
	case asset.EnhancedIncome:
		fmt.Fprintf(&b, `你是一位专注于固定收益投资的资深投资顾问，精通固收+产品运作。

## 背景信息
你正在分析一只二级债基的定投决策。这类产品以债券为底仓，配置少量股票或可转债增强收益。

## 动态参考阈值
- 均线偏离参考: %.2f%%
- 单日波动参考: %.2f%%

## 分析要求
请综合债券端和权益端的情况独立分析。`, maTh, dropTh)
	case asset.PureIncome:
		fmt.Fprintf(&b, `你是一位专注于利率债投资的资深投资顾问，精通宏观利率分析和久期管理。

## 背景信息
你正在分析一只纯债基金的定投决策。纯债收益稳健但对利率变动敏感。

## 动态参考阈值
- 均线偏离参考: %.2f%%

## 分析要求
纯债投资追求稳健，但也不应错过难得的买入机会。`, maTh)
	case asset.DefaultIncome:
		b.WriteString(`你是一位经验丰富的固定收益投资顾问，擅长债券基金的投资决策分析。

## 分析要求
请综合考虑利率环境、估值水平、波动特征等因素独立分析。`)
	default:
		b.WriteString(`你是一位经验丰富的基金投资顾问，擅长基于量化数据进行投资决策分析。

## 分析要求
请综合考虑估值水平、市场趋势、波动特征等因素独立分析。`)
	}
	b.WriteString("\n")
	b.WriteString(outputFormat)
	return b.String()
}

type percentileView struct {
	Value          float64 `json:"value"`
	Interpretation string  `json:"interpretation"`
}

type holdingView struct {
	Name        string `json:"stock_name"`
	Code        string `json:"stock_code"`
	Weight      string `json:"weight"`
	TodayChange string `json:"today_change,omitempty"`
}

type holdingsView struct {
	TopHoldings []holdingView `json:"top_holdings"`
	Count       int           `json:"holdings_count"`
	TopGainers  []string      `json:"top_gainers"`
	TopLosers   []string      `json:"top_losers"`
	Summary     string        `json:"summary"`
	DataSource  string        `json:"data_source"`
}

type promptContext struct {
	FundInfo struct {
		Name             string `json:"name"`
		Code             string `json:"code"`
		AssetClass       string `json:"asset_class"`
		AssetDescription string `json:"asset_description"`
	} `json:"fund_info"`

	Valuation *struct {
		TodayChange  string  `json:"today_estimate_change"`
		EstimateNAV  float64 `json:"estimate_nav"`
		EstimateTime string  `json:"estimate_time"`
		Note         string  `json:"note"`
	} `json:"valuation,omitempty"`

	ValuationMetrics struct {
		Percentiles map[string]percentileView `json:"multi_period_percentile"`
		Consensus   string                    `json:"percentile_consensus"`
		Trend       string                    `json:"trend_direction"`
		Note        string                    `json:"note"`
	} `json:"valuation_metrics"`

	Technical struct {
		MA60               float64 `json:"ma_60"`
		MADeviation        string  `json:"ma_60_deviation"`
		MAInterpretation   string  `json:"ma_deviation_interpretation"`
		Volatility         string  `json:"volatility_60_annualized"`
		VolatilityLevel    string  `json:"volatility_level"`
		Max250             float64 `json:"max_250"`
		Min250             float64 `json:"min_250"`
		DynamicMAThreshold string  `json:"dynamic_ma_threshold"`
	} `json:"technical_indicators"`

	Risk struct {
		DailyChange string `json:"daily_change"`
		Drawdown250 string `json:"drawdown_from_peak"`
		Drawdown60  string `json:"drawdown_60d"`
		Assessment  string `json:"risk_assessment"`
	} `json:"risk_indicators"`

	Market *struct {
		Summary string `json:"summary"`
		Mood    string `json:"mood"`
	} `json:"market_environment,omitempty"`

	Holdings *holdingsView `json:"holdings_analysis,omitempty"`

	Hints struct {
		DecisionOptions  []string `json:"decision_options"`
		ConfidenceLevels []string `json:"confidence_levels"`
	} `json:"analysis_hints"`
}

// BuildContext renders the request as indented JSON for the user message.
func BuildContext(req Request) (string, error) {
	var c promptContext
	m := req.Metrics

	c.FundInfo.Name = req.Fund.DisplayName()
	c.FundInfo.Code = req.Fund.Code
	c.FundInfo.AssetClass = string(req.Class)
	c.FundInfo.AssetDescription = req.Class.Label()

	if v := req.Valuation; v != nil {
		c.Valuation = &struct {
			TodayChange  string  `json:"today_estimate_change"`
			EstimateNAV  float64 `json:"estimate_nav"`
			EstimateTime string  `json:"estimate_time"`
			Note         string  `json:"note"`
		}{
			TodayChange:  fmt.Sprintf("%+.2f%%", v.EstimateChange),
			EstimateNAV:  round(v.EstimateNAV, 4),
			EstimateTime: v.EstimateTime.Format("2006-01-02 15:04"),
			Note:         "估值为实时计算，非最终净值",
		}
	}

	c.ValuationMetrics.Percentiles = map[string]percentileView{
		"60_days":  {round(m.Percentile60, 1), interpretPercentile(m.Percentile60)},
		"250_days": {round(m.Percentile250, 1), interpretPercentile(m.Percentile250)},
		"500_days": {round(m.Percentile500, 1), interpretPercentile(m.Percentile500)},
	}
	c.ValuationMetrics.Consensus = m.Consensus(req.Profile.ConsensusLow, req.Profile.ConsensusHigh).Label()
	c.ValuationMetrics.Trend = m.Trend().Label()
	c.ValuationMetrics.Note = "分位值表示当前净值在历史区间中的位置，0%=历史最低，100%=历史最高"

	c.Technical.MA60 = round(m.MA60, 4)
	c.Technical.MADeviation = fmt.Sprintf("%+.2f%%", m.MADeviation)
	c.Technical.MAInterpretation = "低于均线"
	if m.MADeviation > 0 {
		c.Technical.MAInterpretation = "高于均线"
	}
	c.Technical.Volatility = fmt.Sprintf("%.1f%%", m.Volatility60)
	c.Technical.VolatilityLevel = interpretVolatility(m.Volatility60)
	c.Technical.Max250 = round(m.Max250, 4)
	c.Technical.Min250 = round(m.Min250, 4)
	c.Technical.DynamicMAThreshold = fmt.Sprintf("%.2f%%", req.MAThreshold())

	c.Risk.DailyChange = "N/A"
	if ch, ok := m.Change(); ok {
		c.Risk.DailyChange = fmt.Sprintf("%+.2f%%", ch)
	}
	c.Risk.Drawdown250 = fmt.Sprintf("%.1f%%", m.Drawdown250)
	c.Risk.Drawdown60 = fmt.Sprintf("%.1f%%", m.Drawdown60)
	c.Risk.Assessment = assessRisk(m)

	if req.Market != nil {
		c.Market = &struct {
			Summary string `json:"summary"`
			Mood    string `json:"mood"`
		}{Summary: req.Market.Summary(), Mood: req.Market.Mood()}
	}

	if h := req.Holdings; h != nil && len(h.Holdings) > 0 {
		c.Holdings = newHoldingsView(h)
	}

	c.Hints.DecisionOptions = []string{"双倍补仓", "正常定投", "暂停定投", "观望"}
	c.Hints.ConfidenceLevels = []string{"高", "中", "低"}

	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}
	return string(out), nil
}

// UserMessage wraps the JSON context with the reply instructions.
func UserMessage(contextJSON string) string {
	return "请基于以下数据，运用你的专业分析框架，给出独立的投资决策建议：\n\n```json\n" +
		contextJSON +
		"\n```\n\n请严格按照输出格式回复，包含【决策】、【信心度】和【核心理由】三个部分。"
}

func newHoldingsView(h *model.HoldingsInsight) *holdingsView {
	v := &holdingsView{
		Count:      len(h.Holdings),
		TopGainers: append([]string{}, h.TopGainers...),
		TopLosers:  append([]string{}, h.TopLosers...),
		Summary:    h.Summary,
		DataSource: "季报持仓数据，可能滞后1-3个月",
	}
	for _, s := range h.Holdings {
		hv := holdingView{Name: s.Name, Code: s.Code, Weight: fmt.Sprintf("%.2f%%", s.Weight)}
		if s.Change != nil {
			hv.TodayChange = fmt.Sprintf("%+.2f%%", *s.Change)
		}
		v.TopHoldings = append(v.TopHoldings, hv)
	}
	return v
}

func interpretPercentile(p float64) string {
	switch {
	case p < 20:
		return "极端低估区"
	case p < 40:
		return "低估区"
	case p < 60:
		return "正常区"
	case p < 80:
		return "偏高区"
	default:
		return "极端高估区"
	}
}

func interpretVolatility(v float64) string {
	switch {
	case v < 5:
		return "极低波动（类固收）"
	case v < 15:
		return "低波动"
	case v < 25:
		return "中等波动"
	case v < 35:
		return "高波动"
	default:
		return "极高波动（高风险）"
	}
}

func assessRisk(m model.Metrics) string {
	var risks []string
	if ch, ok := m.Change(); ok && ch < -3 {
		risks = append(risks, "今日大跌")
	}
	if m.Drawdown250 > 15 {
		risks = append(risks, "深度回撤")
	}
	if m.Percentile250 > 85 {
		risks = append(risks, "估值极高")
	}
	if m.Percentile250 < 15 {
		risks = append(risks, "估值极低")
	}
	if len(risks) == 0 {
		return "正常"
	}
	return strings.Join(risks, "、")
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// dynamicThresholds mirrors the evaluators: the profile baseline applies
// until there is volatility to scale by.
func dynamicThresholds(m model.Metrics, p asset.Profile) (ma, drop float64) {
	drop, _ = calculator.DynamicDropThresholds(m.Volatility60)
	if m.Volatility60 <= 0 {
		return p.MAThreshold, drop
	}
	return calculator.DynamicMAThreshold(m.Volatility60), drop
}
