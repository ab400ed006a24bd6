package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/config"
)

// ContactSnapshot is cached enrichment data for one contact
type ContactSnapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Seniority   string `json:"seniority,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	CRMID       string `json:"crm_id,omitempty"`
}

// CompanySnapshot is cached enrichment data for one company
type CompanySnapshot struct {
	Domain      string   `json:"domain"`
	Name        string   `json:"name"`
	Industry    string   `json:"industry,omitempty"`
	Signals     []string `json:"signals,omitempty"`
	CRMStatuses []string `json:"crm_statuses,omitempty"`
	ICPScore    int      `json:"icp_score,omitempty"`
}

// Snapshot bundles a company's enrichment with its known contacts,
// keyed by company domain
type Snapshot struct {
	Company  CompanySnapshot   `json:"company"`
	Contacts []ContactSnapshot `json:"contacts"`
}

// Contact finds a contact in the snapshot by id. Returns nil on miss.
func (s *Snapshot) Contact(contactID string) *ContactSnapshot {
	if s == nil {
		return nil
	}
	for i := range s.Contacts {
		if s.Contacts[i].ID == contactID {
			return &s.Contacts[i]
		}
	}
	return nil
}

// SnapshotCache is the short-lived enrichment cache. Get returns
// (nil, nil) on a cache miss; callers degrade to fallback values.
type SnapshotCache interface {
	Get(ctx context.Context, domain string) (*Snapshot, error)
	Set(ctx context.Context, domain string, snapshot *Snapshot) error
}

// NewSnapshotCache picks the Redis-backed cache when Redis is enabled,
// otherwise an in-process cache
func NewSnapshotCache(cfg config.RedisConfig, ttl time.Duration) SnapshotCache {
	if cfg.Enabled {
		return NewRedisSnapshotCache(cfg, ttl)
	}
	return NewMemorySnapshotCache(ttl)
}

// RedisSnapshotCache stores snapshots as JSON values with a TTL
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotCache(cfg config.RedisConfig, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: ttl,
	}
}

func snapshotKey(domain string) string {
	return fmt.Sprintf("snapshot:%s", domain)
}

func (rc *RedisSnapshotCache) Get(ctx context.Context, domain string) (*Snapshot, error) {
	data, err := rc.client.Get(ctx, snapshotKey(domain)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (rc *RedisSnapshotCache) Set(ctx context.Context, domain string, snapshot *Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, snapshotKey(domain), data, rc.ttl).Err()
}

// MemorySnapshotCache is the in-process fallback used when Redis is
// disabled, and in tests
type MemorySnapshotCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	snapshot  *Snapshot
	expiresAt time.Time
}

func NewMemorySnapshotCache(ttl time.Duration) *MemorySnapshotCache {
	return &MemorySnapshotCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (mc *MemorySnapshotCache) Get(_ context.Context, domain string) (*Snapshot, error) {
	mc.mu.RLock()
	entry, ok := mc.entries[domain]
	mc.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.snapshot, nil
}

func (mc *MemorySnapshotCache) Set(_ context.Context, domain string, snapshot *Snapshot) error {
	mc.mu.Lock()
	mc.entries[domain] = memoryEntry{
		snapshot:  snapshot,
		expiresAt: time.Now().Add(mc.ttl),
	}
	mc.mu.Unlock()
	return nil
}
