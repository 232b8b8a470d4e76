// Package redis connects the shared go-redis client used by the directory
// cache and the tenant-scoped application cache.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Cache callers treat every error as a miss; OpTimeout bounds how long such a
// miss can take.
package redis
