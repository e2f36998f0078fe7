package propagation

import "github.com/regwave/regwave/internal/models"

// Propagated impact is attenuated twice per hop: once by the edge's
// transmission mode, once by the sensitivity of the target's entity
// family. Both tables are fixed contract values; changing them changes
// every persisted score.

// typeMultiplier scales impact by how the edge transmits it.
var typeMultiplier = map[models.ImpactType]float64{
	models.ImpactDirect:      1.0,
	models.ImpactIndirect:    0.6,
	models.ImpactConditional: 0.3,
}

// severityWeight scales impact by the target's entity family. Regulations
// amplify (>1.0): an impact chain passing through a regulation node gets
// stronger, which is intentional even though regulations rarely appear on
// the target side.
var severityWeight = map[models.NodeType]float64{
	models.NodeTypeRegulation: 1.2,
	models.NodeTypeDepartment: 1.0,
	models.NodeTypeBudget:     0.9,
	models.NodeTypeService:    0.8,
	models.NodeTypeKPI:        0.7,
}

// SeverityToInitialImpact maps a regulation's severity to the seed impact
// of its propagation. Unknown severities seed at the Medium value.
func SeverityToInitialImpact(severity models.Severity) float64 {
	switch severity {
	case models.SeverityCritical:
		return 1.0
	case models.SeverityHigh:
		return 0.8
	case models.SeverityMedium:
		return 0.5
	case models.SeverityLow:
		return 0.3
	default:
		return 0.5
	}
}

// ImpactToRiskLevel buckets a score into the reporting category.
func ImpactToRiskLevel(score float64) models.RiskLevel {
	switch {
	case score >= 0.9:
		return models.RiskCritical
	case score >= 0.7:
		return models.RiskHigh
	case score >= 0.5:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// evaluateCondition gates a CONDITIONAL edge. The "required" key wins when
// present: the edge passes iff the value is the boolean true. Otherwise a
// "threshold" key passes iff its numeric value is strictly positive. A
// condition with neither key, or no condition at all, passes.
func evaluateCondition(condition map[string]interface{}) bool {
	if len(condition) == 0 {
		return true
	}
	if raw, ok := condition["required"]; ok {
		b, ok := raw.(bool)
		return ok && b
	}
	if raw, ok := condition["threshold"]; ok {
		v, ok := asFloat(raw)
		return ok && v > 0
	}
	return true
}

// asFloat widens the numeric types JSON and YAML decoders produce.
func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
