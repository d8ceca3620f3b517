package services

import (
	"context"

	"github.com/dmitrijs2005/portfolio/internal/logging"
)

// cleanupBlob deletes a replaced or orphaned image. Failures are only logged;
// unmanaged URLs are left alone.
func cleanupBlob(ctx context.Context, store Store, log logging.Logger, url string) {
	if !store.ManagesBlob(url) {
		return
	}
	if _, err := store.DeleteBlob(ctx, url); err != nil {
		log.Warn(ctx, "image cleanup failed", "url", url, "error", err)
	}
}
