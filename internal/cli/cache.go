package cli

import "fmt"

// CacheStatsCmd prints analytics cache diagnostics.
type CacheStatsCmd struct{}

func (c *CacheStatsCmd) Run(ctx *Context) error {
	mgr, err := ctx.Manager()
	if err != nil {
		return err
	}
	stats, err := mgr.CacheStats()
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "Backend:  %s\n", mgr.Config().CacheBackend)
	fmt.Fprintf(ctx.Out, "Entries:  %d\n", stats.TotalEntries)
	fmt.Fprintf(ctx.Out, "Expired:  %d\n", stats.ExpiredEntries)
	fmt.Fprintf(ctx.Out, "Size:     %d bytes\n", stats.TotalSizeBytes)
	return nil
}

// CacheCleanupCmd removes expired cache entries.
type CacheCleanupCmd struct{}

func (c *CacheCleanupCmd) Run(ctx *Context) error {
	mgr, err := ctx.Manager()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Removed %d expired entries\n", mgr.CleanupCache())
	return nil
}

// CacheClearCmd drops every cached result of the configured user.
type CacheClearCmd struct{}

func (c *CacheClearCmd) Run(ctx *Context) error {
	mgr, err := ctx.Manager()
	if err != nil {
		return err
	}
	userID := mgr.Config().UserID
	fmt.Fprintf(ctx.Out, "Cleared %d entries for %s\n", mgr.ClearCache(userID), userID)
	return nil
}
