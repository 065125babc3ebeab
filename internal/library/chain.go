package library

import "context"

// Next returns the chapter after current in the list order. It reports
// false when current is last, is not in the list, or the list cannot be
// read. It never fails loudly: a broken list just ends the chain.
func (l *Library) Next(ctx context.Context, current string) (string, bool) {
	entries, err := l.Entries(ctx)
	if err != nil {
		l.log.Warn("cannot resolve next chapter", "chapter", current, "err", err)
		return "", false
	}

	for i, e := range entries {
		if e.Name != current {
			continue
		}
		if i+1 < len(entries) {
			return entries[i+1].Name, true
		}
		return "", false
	}

	l.log.Debug("chapter not in list", "chapter", current)
	return "", false
}
