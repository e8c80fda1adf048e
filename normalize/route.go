package normalize

import (
	"strings"

	"voicelens/vcp"
)

// Extraction routing: the vendor-declared "extractions" bag is schema-free,
// so it is routed by an ordered list of key-pattern predicates rather than
// a fixed field per possible key. Unknown keys stay inert in the vendor bag
// until a routing rule is added for them.

type bucketRule struct {
	bucket   string
	provider string
	dataKey  string
	match    func(key string) bool
}

var bucketRules = []bucketRule{
	{
		bucket:   "crm_system",
		provider: "vendor_extractions",
		dataKey:  "contact_data",
		match: func(k string) bool {
			return strings.HasPrefix(k, "contact_") || strings.HasPrefix(k, "customer_") || strings.HasPrefix(k, "lead_")
		},
	},
	{
		bucket:   "calendar_system",
		provider: "vendor_scheduling",
		dataKey:  "scheduling_data",
		match: func(k string) bool {
			for _, term := range []string{"appointment", "schedule", "meeting", "followup"} {
				if strings.Contains(k, term) {
					return true
				}
			}
			return false
		},
	},
	{
		bucket:   "sales_system",
		provider: "vendor_sales_intelligence",
		dataKey:  "opportunity_data",
		match: func(k string) bool {
			for _, term := range []string{"budget", "purchase", "product_interest", "decision_maker", "timeline"} {
				if strings.Contains(k, term) {
					return true
				}
			}
			return false
		},
	},
}

// routeExtractions populates custom.integrations buckets from the payload's
// extractions map. Returns true when at least one bucket matched.
func routeExtractions(custom, raw map[string]any) bool {
	extractions, ok := raw["extractions"].(map[string]any)
	if !ok || len(extractions) == 0 {
		return false
	}

	integrations := map[string]any{}
	for _, rule := range bucketRules {
		matched := map[string]any{}
		for key, value := range extractions {
			if rule.match(strings.ToLower(key)) {
				matched[key] = value
			}
		}
		if len(matched) == 0 {
			continue
		}
		bucket := map[string]any{
			"provider":   rule.provider,
			rule.dataKey: matched,
		}
		switch rule.bucket {
		case "crm_system":
			bucket["lead_score"] = leadScore(extractions)
		case "calendar_system":
			if next, ok := extractions["next_followup_date"]; ok {
				bucket["next_action"] = next
			}
		case "sales_system":
			bucket["qualification_score"] = vcp.QualificationScore(matched)
		}
		integrations[rule.bucket] = bucket
	}

	if len(integrations) == 0 {
		return false
	}
	custom["integrations"] = integrations
	return true
}

func leadScore(extractions map[string]any) any {
	if v, ok := extractions["customer_interest_level"]; ok {
		return v
	}
	if v, ok := extractions["lead_score"]; ok {
		return v
	}
	return "unknown"
}
