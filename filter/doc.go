// Package filter selects Replicate files and predictions with expressions
// written in github.com/expr-lang/expr.
//
// File expressions see ID, Name, ContentType, Size, ETag, Checksums,
// Metadata, URL, CreatedAt and ExpiresAt, plus the helpers meta(key),
// hasMeta(key), isType(prefix) and expired().
//
// Prediction expressions see ID, Model, Version, Status, Error, Logs,
// Input, Output, Metrics, CreatedAt, StartedAt, CompletedAt and
// RunSeconds, plus input(key), hasInput(key), metric(key), ownedBy(owner),
// terminal() and running().
//
// Every expression can use daysSince(t), daysAgo(n), hoursAgo(n),
// parseDate("2006-01-02") and icontains(s, substr).
//
//	f, err := filter.Compile(`isType("image/") and Size > 1e6 and CreatedAt < daysAgo(7)`)
//	if err != nil {
//		return err
//	}
//	for file, err := range filter.Files(client.Files().All(ctx), f) {
//		...
//	}
package filter
