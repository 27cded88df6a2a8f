// Package redis stores dialogue documents in Redis and provides a Redis-backed editing lock.
package redis
