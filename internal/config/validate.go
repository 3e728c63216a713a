package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string
	Warnings []string
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg along with every
// problem found. Errors stop startup; warnings only log.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Search.Locations = trimList(out.Search.Locations)
	out.Search.Categories = trimList(out.Search.Categories)
	out.SMS.FromNumber = strings.TrimSpace(out.SMS.FromNumber)
	out.SMS.AccountSID = strings.TrimSpace(out.SMS.AccountSID)

	// ---- Validation rules ----

	if len(out.Search.Locations) == 0 {
		res.addErr("search.locations must list at least one location")
	}
	if len(out.Search.Categories) == 0 {
		res.addErr("search.categories must list at least one category")
	}
	if out.Search.MaxResultsPerCategory <= 0 {
		res.addErr("search.max_results_per_category must be > 0")
	} else if out.Search.MaxResultsPerCategory > 200 {
		res.addWarn("search.max_results_per_category is very high (%d); long searches get blocked more often.", out.Search.MaxResultsPerCategory)
	}
	if out.Search.DelaySeconds < 0 {
		res.addErr("search.delay_seconds must be >= 0")
	} else if out.Search.DelaySeconds < 10 {
		res.addWarn("search.delay_seconds is very low (%d) and may trigger verification challenges.", out.Search.DelaySeconds)
	}

	if out.Delay.MinMillis < 0 || out.Delay.MaxMillis < 0 {
		res.addErr("delay.min_millis and delay.max_millis must be >= 0")
	}
	if out.Delay.MaxMillis < out.Delay.MinMillis {
		res.addErr("delay.max_millis must be >= delay.min_millis")
	}

	if out.Enrich.Enabled && out.Enrich.MaxClicks <= 0 {
		res.addErr("enrich.max_clicks must be > 0 when enrich.enabled=true")
	}

	if out.SMS.Enabled {
		if out.SMS.AccountSID == "" {
			res.addErr("sms.account_sid is required when sms.enabled=true")
		}
		if out.SMS.FromNumber == "" {
			res.addErr("sms.from_number is required when sms.enabled=true")
		} else if !strings.HasPrefix(out.SMS.FromNumber, "+") {
			res.addWarn("sms.from_number %q is not in +E.164 form; delivery may fail.", out.SMS.FromNumber)
		}
		if out.SMS.Workers <= 0 {
			res.addErr("sms.workers must be > 0 when sms.enabled=true")
		}
		if out.SMS.DelaySeconds < 0 {
			res.addErr("sms.delay_seconds must be >= 0")
		}
		if strings.TrimSpace(out.SMS.MessageTemplate) == "" {
			res.addErr("sms.message_template is required when sms.enabled=true")
		} else if !strings.Contains(out.SMS.MessageTemplate, "{business_name}") {
			res.addWarn("sms.message_template has no {business_name} placeholder; every lead gets the same text.")
		}
	}

	if out.Autopilot.IntervalHours < 0 {
		res.addErr("autopilot.interval_hours must be >= 0")
	}

	return out, res
}
