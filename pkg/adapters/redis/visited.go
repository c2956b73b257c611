package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/arbor/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// claimScript adds the id to the run's set and, only if it was new, appends it
// to the ordered claim log. Both keys expire together.
var claimScript = backend.NewScript(`
if redis.call("SADD", KEYS[1], ARGV[1]) == 1 then
	redis.call("RPUSH", KEYS[2], ARGV[1])
	if tonumber(ARGV[2]) > 0 then
		redis.call("PEXPIRE", KEYS[1], ARGV[2])
		redis.call("PEXPIRE", KEYS[2], ARGV[2])
	end
	return 1
end
return 0
`)

// VisitedSet implements ports.VisitedSet on a Redis set so several workers,
// possibly in separate processes, can share one run's claims.
type VisitedSet struct {
	client *backend.Client
	setKey string
	logKey string
	ttl    time.Duration
}

var _ ports.VisitedSet = (*VisitedSet)(nil)

// VisitedSets returns a ports.VisitedSetFactory producing sets keyed by run ID.
// A non-zero ttl bounds how long abandoned claims survive a crashed run.
func VisitedSets(client *backend.Client, prefix string, ttl time.Duration) ports.VisitedSetFactory {
	return func(runID string) ports.VisitedSet {
		base := prefix + "visited:" + runID
		return &VisitedSet{
			client: client,
			setKey: base,
			logKey: base + ":order",
			ttl:    ttl,
		}
	}
}

func (v *VisitedSet) Add(ctx context.Context, id int) (bool, error) {
	n, err := claimScript.Run(ctx, v.client, []string{v.setKey, v.logKey}, id, v.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to claim task %d: %w", id, err)
	}
	return n == 1, nil
}

func (v *VisitedSet) Contains(ctx context.Context, id int) (bool, error) {
	ok, err := v.client.SIsMember(ctx, v.setKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check task %d: %w", id, err)
	}
	return ok, nil
}

func (v *VisitedSet) Members(ctx context.Context) ([]int, error) {
	raw, err := v.client.LRange(ctx, v.logKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read visited tasks: %w", err)
	}

	ids := make([]int, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("corrupt visited entry %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Discard deletes both keys; the set lives only as long as its run.
func (v *VisitedSet) Discard(ctx context.Context) error {
	return v.client.Del(ctx, v.setKey, v.logKey).Err()
}
