package scrape

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nmoretto/jobharvest/internal/models"
)

// jobPostingNodes collects every JSON-LD object on the page whose @type names
// a JobPosting, however deeply the block wraps it.
func jobPostingNodes(doc *goquery.Document) []map[string]any {
	var nodes []map[string]any

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		data, err := decodeJSONLD(raw)
		if err != nil {
			return
		}
		nodes = append(nodes, findTypedNodes(data, isJobPosting)...)
	})

	return nodes
}

func decodeJSONLD(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "<!--")
	raw = strings.TrimSuffix(raw, "-->")
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "\u2028", "")
	raw = strings.ReplaceAll(raw, "\u2029", "")

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// findTypedNodes walks an arbitrarily nested JSON-LD value depth-first and
// returns every object the predicate accepts. Matching objects are not
// descended into further.
func findTypedNodes(data any, match func(map[string]any) bool) []map[string]any {
	var nodes []map[string]any

	switch value := data.(type) {
	case []any:
		for _, item := range value {
			nodes = append(nodes, findTypedNodes(item, match)...)
		}
	case map[string]any:
		if match(value) {
			return append(nodes, value)
		}
		for _, key := range []string{"@graph", "mainEntity", "itemListElement", "item"} {
			if child, ok := value[key]; ok {
				nodes = append(nodes, findTypedNodes(child, match)...)
			}
		}
	}

	return nodes
}

func isJobPosting(node map[string]any) bool {
	return strings.Contains(strings.ToLower(typeTag(node)), "jobposting")
}

// typeTag flattens @type, which may be a string or an array of strings.
func typeTag(node map[string]any) string {
	switch value := firstPresent(node["@type"], node["type"]).(type) {
	case string:
		return value
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// applyJobPosting copies JobPosting fields into the record, filling only the
// fields still empty so earlier cascade layers always win.
func applyJobPosting(record *models.JobRecord, node map[string]any) {
	fill(&record.Title, stringValue(node["title"], node["name"]))
	fill(&record.Company, stringValue(mapValue(node["hiringOrganization"], "name")))
	fill(&record.Location, locationFromJSONLD(node["jobLocation"]))
	fill(&record.Salary, renderSalary(node["baseSalary"]))
	fill(&record.JobType, stringValue(node["employmentType"]))
	fill(&record.DatePosted, stringValue(node["datePosted"]))
	fill(&record.DescriptionHTML, strings.TrimSpace(stringValue(node["description"])))
}

func fill(target *string, value string) {
	if *target == "" && value != "" {
		*target = value
	}
}

// renderSalary turns a JSON-LD baseSalary into a human-readable string. It
// accepts a bare string, a flat value, or a nested MonetaryAmount with
// min/max and unitText, e.g. "$80,000 - $100,000 per year".
func renderSalary(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		symbol := currencySymbol(stringValue(v["currency"]))

		inner, ok := v["value"].(map[string]any)
		if !ok {
			if amount := formatAmount(v["value"]); amount != "" {
				return joinSalary(symbol+amount, salaryUnit(stringValue(v["unitText"])))
			}
			inner = v
		}

		unit := salaryUnit(stringValue(inner["unitText"], v["unitText"]))
		if amount := formatAmount(inner["value"]); amount != "" {
			return joinSalary(symbol+amount, unit)
		}

		minAmount := formatAmount(inner["minValue"])
		maxAmount := formatAmount(inner["maxValue"])
		switch {
		case minAmount != "" && maxAmount != "":
			return joinSalary(symbol+minAmount+" - "+symbol+maxAmount, unit)
		case minAmount != "":
			return joinSalary(symbol+minAmount, unit)
		case maxAmount != "":
			return joinSalary(symbol+maxAmount, unit)
		}
	}
	return ""
}

func joinSalary(amount string, unit string) string {
	return strings.TrimSpace(amount + " " + unit)
}

func currencySymbol(currency string) string {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "", "AUD", "USD", "NZD", "CAD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return strings.TrimSpace(currency) + " "
	}
}

func salaryUnit(unit string) string {
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "":
		return ""
	case "YEAR", "ANNUM":
		return "per year"
	case "MONTH":
		return "per month"
	case "WEEK":
		return "per week"
	case "DAY":
		return "per day"
	case "HOUR":
		return "per hour"
	default:
		return "per " + strings.ToLower(strings.TrimSpace(unit))
	}
}

// formatAmount renders a numeric salary component with thousands separators
// and no trailing decimal zeros. Non-numeric input falls back to stringValue.
func formatAmount(value any) string {
	raw := stringValue(value)
	if raw == "" {
		return ""
	}
	whole, frac, _ := strings.Cut(raw, ".")
	if !digitsOnly(whole) {
		return raw
	}
	grouped := groupThousands(whole)
	if frac != "" && frac != strings.Repeat("0", len(frac)) {
		return grouped + "." + frac
	}
	return grouped
}

func digitsOnly(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func locationFromJSONLD(value any) string {
	switch v := value.(type) {
	case []any:
		var parts []string
		for _, item := range v {
			if loc := locationFromJSONLD(item); loc != "" {
				parts = append(parts, loc)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		if address, ok := v["address"].(map[string]any); ok {
			return joinAddress(address)
		}
		return joinAddress(v)
	case string:
		return v
	}
	return ""
}

func joinAddress(value map[string]any) string {
	parts := []string{
		stringValue(value["streetAddress"]),
		stringValue(value["addressLocality"]),
		stringValue(value["addressRegion"]),
		stringValue(value["postalCode"]),
		stringValue(value["addressCountry"]),
	}
	var cleaned []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, ", ")
}

func firstPresent(values ...any) any {
	for _, value := range values {
		if value != nil {
			return value
		}
	}
	return nil
}

func stringValue(values ...any) string {
	for _, value := range values {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
		case int:
			return fmt.Sprintf("%d", v)
		case int64:
			return fmt.Sprintf("%d", v)
		case json.Number:
			return v.String()
		case map[string]any:
			if name := stringValue(v["name"]); name != "" {
				return name
			}
		}
	}
	return ""
}

func mapValue(value any, key string) any {
	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}
