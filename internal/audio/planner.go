package audio

import "fmt"

// Tier is a discrete re-encode quality level, ordered from no work to the
// most aggressive reduction.
type Tier int

const (
	TierNone Tier = iota
	TierHigh
	TierMedium
	TierLow
	TierLowest
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	case TierLowest:
		return "lowest"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

const (
	// CeilingUtilization is the share of the ceiling an asset may fill
	// before it gets re-encoded.
	CeilingUtilization = 0.9
	// SafetyMargin reserves headroom for container overhead.
	SafetyMargin = 0.7
)

type tierRule struct {
	tier        Tier
	minRatio    float64
	bitRateKbps int
	sampleRate  int
}

// tiers are checked in order; the first whose minRatio is met wins.
var tiers = []tierRule{
	{tier: TierHigh, minRatio: 0.7, bitRateKbps: 96},
	{tier: TierMedium, minRatio: 0.5, bitRateKbps: 64},
	{tier: TierLow, minRatio: 0.3, bitRateKbps: 48, sampleRate: 22050},
	{tier: TierLowest, minRatio: 0, bitRateKbps: 32, sampleRate: 16000},
}

// CompressionPlan is the outcome of planning for one asset.
type CompressionPlan struct {
	Tier        Tier    `json:"tier"`
	BitRateKbps int     `json:"bit_rate_kbps,omitempty"`
	SampleRate  int     `json:"sample_rate,omitempty"` // 0 keeps the source rate
	Ratio       float64 `json:"ratio"`                 // estimated output/input size
}

// NeedsTranscode reports whether the plan asks for a re-encode.
func (p CompressionPlan) NeedsTranscode() bool {
	return p.Tier != TierNone
}

// Plan decides whether an asset of rawSize bytes must be re-encoded to fit
// under ceiling, and at which tier. It is pure and total: every input maps
// to a plan, a non-positive ceiling included (treated as "compress hardest").
func Plan(rawSize, ceiling int64) CompressionPlan {
	if rawSize <= 0 || float64(rawSize) <= float64(ceiling)*CeilingUtilization {
		return CompressionPlan{Tier: TierNone, Ratio: 1}
	}

	ratio := float64(ceiling) * SafetyMargin / float64(rawSize)
	if ratio < 0 {
		ratio = 0
	}

	for _, rule := range tiers {
		if ratio >= rule.minRatio {
			return CompressionPlan{
				Tier:        rule.tier,
				BitRateKbps: rule.bitRateKbps,
				SampleRate:  rule.sampleRate,
				Ratio:       ratio,
			}
		}
	}

	// unreachable: the last tier has minRatio 0
	last := tiers[len(tiers)-1]
	return CompressionPlan{Tier: last.tier, BitRateKbps: last.bitRateKbps, SampleRate: last.sampleRate, Ratio: ratio}
}
