// Package redis connects go-redis clients with retries and exposes a
// readiness probe.
//
//	client, err := redis.Connect(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
