package sequence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdConfig configures the etcd-backed allocator.
type EtcdConfig struct {
	// Endpoints lists the etcd cluster endpoints.
	Endpoints []string

	// Namespace prefixes every counter key. Defaults to "halcyon".
	Namespace string

	// DialTimeout is the maximum time to wait for connection establishment.
	// Defaults to 5 seconds.
	DialTimeout time.Duration

	// CASAttempts bounds the compare-and-swap loop under contention.
	// Defaults to 16.
	CASAttempts int
}

// EtcdAllocator allocates numbers through an etcd compare-and-swap
// transaction on a counter key. Deployments that already run etcd can use it
// instead of the document store's counter.
//
// Each allocation reads the current counter value, then commits a transaction
// guarded on the key's revision: ModRevision for an existing key,
// CreateRevision == 0 for a first allocation. A failed guard means another
// writer won the race; the loop re-reads and retries.
type EtcdAllocator struct {
	client      *clientv3.Client
	namespace   string
	casAttempts int
}

// NewEtcdAllocator connects to etcd and returns an allocator.
func NewEtcdAllocator(cfg EtcdConfig) (*EtcdAllocator, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "halcyon"
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 5 * time.Second
	}
	casAttempts := cfg.CASAttempts
	if casAttempts <= 0 {
		casAttempts = 16
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &EtcdAllocator{
		client:      cli,
		namespace:   namespace,
		casAttempts: casAttempts,
	}, nil
}

// Next atomically increments the (prefix, year) counter and returns the new value.
func (a *EtcdAllocator) Next(ctx context.Context, prefix string, year int) (int64, error) {
	key := a.counterKey(prefix, year)

	for attempt := 0; attempt < a.casAttempts; attempt++ {
		resp, err := a.client.Get(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
		}

		var current int64
		var guard clientv3.Cmp
		if len(resp.Kvs) == 0 {
			guard = clientv3.Compare(clientv3.CreateRevision(key), "=", 0)
		} else {
			current, err = strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("corrupt counter %s: %w", key, err)
			}
			guard = clientv3.Compare(clientv3.ModRevision(key), "=", resp.Kvs[0].ModRevision)
		}

		next := current + 1
		txnResp, err := a.client.Txn(ctx).
			If(guard).
			Then(clientv3.OpPut(key, strconv.FormatInt(next, 10))).
			Commit()
		if err != nil {
			return 0, fmt.Errorf("failed to commit counter %s: %w", key, err)
		}
		if txnResp.Succeeded {
			return next, nil
		}
		// Lost the race; re-read and retry.
	}
	return 0, fmt.Errorf("counter %s: %w", key, ErrExhausted)
}

// Close releases the etcd client.
func (a *EtcdAllocator) Close() error {
	return a.client.Close()
}

func (a *EtcdAllocator) counterKey(prefix string, year int) string {
	return fmt.Sprintf("%s/counters/%s", a.namespace, CounterKey(prefix, year))
}
