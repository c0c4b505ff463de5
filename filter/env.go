package filter

import (
	"maps"
	"strings"
	"time"

	"github.com/s0up4200/go-replicate/replicate"
)

// staticHelpers are available to every expression.
func staticHelpers() map[string]any {
	return map[string]any{
		"daysSince": func(t time.Time) int {
			return int(time.Since(t).Hours() / 24)
		},
		"daysAgo": func(days int) time.Time {
			return time.Now().AddDate(0, 0, -days)
		},
		"hoursAgo": func(hours int) time.Time {
			return time.Now().Add(-time.Duration(hours) * time.Hour)
		},
		"parseDate": func(s string) time.Time {
			t, _ := time.Parse("2006-01-02", s)
			return t
		},
		"icontains": func(s, substr string) bool {
			return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
		},
	}
}

func newEnv(helpers map[string]any, size int) map[string]any {
	env := make(map[string]any, len(helpers)+size)
	maps.Copy(env, helpers)
	return env
}

func orZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// fileEnv exposes a file's fields and file-specific helpers.
func fileEnv(helpers map[string]any, f replicate.File) map[string]any {
	env := newEnv(helpers, 16)

	env["ID"] = f.ID
	env["Name"] = f.Name
	env["ContentType"] = f.ContentType
	env["Size"] = f.Size
	env["ETag"] = f.ETag
	env["Checksums"] = f.Checksums
	env["Metadata"] = f.Metadata
	env["URL"] = f.GetURL()
	env["CreatedAt"] = f.CreatedAt
	env["ExpiresAt"] = orZero(f.ExpiresAt)

	env["meta"] = func(key string) any {
		return f.Metadata[key]
	}
	env["hasMeta"] = func(key string) bool {
		_, ok := f.Metadata[key]
		return ok
	}
	env["isType"] = func(prefix string) bool {
		return strings.HasPrefix(strings.ToLower(f.ContentType), strings.ToLower(prefix))
	}
	env["expired"] = func() bool {
		return f.ExpiresAt != nil && f.ExpiresAt.Before(time.Now())
	}

	return env
}

// predictionEnv exposes a prediction's fields and prediction-specific helpers.
func predictionEnv(helpers map[string]any, p replicate.Prediction) map[string]any {
	env := newEnv(helpers, 24)

	started, completed := orZero(p.StartedAt), orZero(p.CompletedAt)
	var runSeconds float64
	if !started.IsZero() && !completed.IsZero() {
		runSeconds = completed.Sub(started).Seconds()
	}

	env["ID"] = p.ID
	env["Model"] = p.Model
	env["Version"] = p.Version
	env["Status"] = string(p.Status)
	env["Error"] = p.Error
	env["Logs"] = p.Logs
	env["Input"] = p.Input
	env["Output"] = p.Output
	env["Metrics"] = p.Metrics
	env["CreatedAt"] = p.CreatedAt
	env["StartedAt"] = started
	env["CompletedAt"] = completed
	env["RunSeconds"] = runSeconds

	env["input"] = func(key string) any {
		return p.Input[key]
	}
	env["hasInput"] = func(key string) bool {
		_, ok := p.Input[key]
		return ok
	}
	env["metric"] = func(key string) float64 {
		v, _ := p.Metrics[key].(float64)
		return v
	}
	env["ownedBy"] = func(owner string) bool {
		o, _, _ := strings.Cut(p.Model, "/")
		return strings.EqualFold(o, owner)
	}
	env["terminal"] = p.Status.IsTerminal
	env["running"] = p.Status.IsRunning

	return env
}
