// Package async runs background work with panic recovery, a timeout and
// structured error logging.
//
//	done := async.SafeGo(ctx, logger, 10*time.Second, "watch Me", func(ctx context.Context) error {
//		return fetch(ctx)
//	})
//	<-done
//
// The gqlclient package uses SafeGo to deliver Watch results.
package async
