package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vacancy-vault/internal/parking"
)

const DefaultKeyPrefix = "parking"

// RedisStore keeps the lot and the holiday schedule as JSON strings and
// the bill ledger as a list, all under one key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
	loc    *time.Location
}

type RedisConfig struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

func (c *RedisConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

// DialRedis connects and pings before returning.
func DialRedis(ctx context.Context, cfg RedisConfig, loc *time.Location) (*RedisStore, error) {
	cfg.SetDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	return NewRedisStore(client, cfg.KeyPrefix, loc), nil
}

func NewRedisStore(client *redis.Client, prefix string, loc *time.Location) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if loc == nil {
		loc = time.Local
	}
	return &RedisStore{client: client, prefix: prefix, loc: loc}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// getJSON reports false when the key does not exist.
func (s *RedisStore) getJSON(ctx context.Context, name string, v any) (bool, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", s.key(name), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", s.key(name), err)
	}
	return true, nil
}

func (s *RedisStore) setJSON(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key(name), err)
	}
	return nil
}

func (s *RedisStore) LoadSlots(ctx context.Context) (parking.Slots, error) {
	var records []SlotRecord
	if _, err := s.getJSON(ctx, "slots", &records); err != nil {
		return nil, err
	}
	return DecodeSlots(records, s.loc)
}

func (s *RedisStore) SaveSlots(ctx context.Context, slots parking.Slots) error {
	return s.setJSON(ctx, "slots", EncodeSlots(slots))
}

// LoadHolidays writes the default schedule on first use.
func (s *RedisStore) LoadHolidays(ctx context.Context) ([]parking.Holiday, error) {
	var records []HolidayRecord
	found, err := s.getJSON(ctx, "holidays", &records)
	if err != nil {
		return nil, err
	}
	if !found {
		records = DefaultHolidays()
		if err := s.setJSON(ctx, "holidays", records); err != nil {
			return nil, fmt.Errorf("seed holidays: %w", err)
		}
	}
	return DecodeHolidays(records, s.loc)
}

func (s *RedisStore) AppendBill(ctx context.Context, bill parking.Bill) error {
	data, err := json.Marshal(EncodeBill(bill))
	if err != nil {
		return err
	}
	if err := s.client.RPush(ctx, s.key("bills"), data).Err(); err != nil {
		return fmt.Errorf("append bill: %w", err)
	}
	return nil
}

func (s *RedisStore) Bills(ctx context.Context) ([]parking.Bill, error) {
	items, err := s.client.LRange(ctx, s.key("bills"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	bills := make([]parking.Bill, 0, len(items))
	for _, item := range items {
		var rec BillRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode bill: %w", err)
		}
		bills = append(bills, DecodeBill(rec))
	}
	return bills, nil
}
