// Package gqlclient is the GraphQL client used by the gateway and the probe
// CLI. It wraps a transport.Pipeline with fetch policies, a response cache
// and the document catalog for the authentication backend.
//
//	client, err := gqlclient.New(gqlclient.Config{TokenAccessor: accessor})
//	resp, err := client.Query(ctx, gqlclient.MeQuery, nil)
//	for res := range client.Watch(ctx, gqlclient.SessionStatusQuery, nil) {
//		// cached result first (FromCache), then the network result
//	}
package gqlclient
