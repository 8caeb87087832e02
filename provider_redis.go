package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const DefaultRedisChunkSize = 100

// RedisProvider shares resolved entries between processes. Entries are msgpack encoded.
type RedisProvider[ID comparable, V any] struct {
	client    redis.Cmdable
	chunkSize int
}

func NewRedisProvider[ID comparable, V any](client redis.Cmdable) *RedisProvider[ID, V] {
	return &RedisProvider[ID, V]{
		client:    client,
		chunkSize: DefaultRedisChunkSize,
	}
}

func (r *RedisProvider[ID, V]) WithChunkSize(size int) *RedisProvider[ID, V] {
	if size > 0 {
		r.chunkSize = size
	}

	return r
}

func (r *RedisProvider[ID, V]) chunkBy(items []*Key[ID], chunkSize int) (chunks [][]*Key[ID]) {
	for chunkSize < len(items) {
		items, chunks = items[chunkSize:], append(chunks, items[0:chunkSize:chunkSize])
	}
	return append(chunks, items)
}

type redisChunkResponse[ID comparable, V any] struct {
	Error   error
	Keys    []*Key[ID]
	Missing []*Key[ID]
	Results map[ID]*Entry[V]
}

// MGet queries chunks concurrently. A failing chunk is logged and its keys are
// reported missing.
func (r *RedisProvider[ID, V]) MGet(ctx context.Context, keys []*Key[ID], requiredModelVersion uint16) (map[ID]*Entry[V], []*Key[ID], error) {
	results := map[ID]*Entry[V]{}
	if len(keys) == 0 {
		return results, nil, nil
	}

	chunks := r.chunkBy(keys, r.chunkSize)
	respChannels := make([]chan redisChunkResponse[ID, V], 0, len(chunks))

	for _, chunk := range chunks {
		ch := make(chan redisChunkResponse[ID, V], 1)
		respChannels = append(respChannels, ch)

		go func(chunk []*Key[ID]) {
			defer close(ch)

			ch <- r.getChunk(ctx, chunk, requiredModelVersion)
		}(chunk)
	}

	var missing []*Key[ID]

	for _, ch := range respChannels {
		resp := <-ch

		if resp.Error != nil {
			zerolog.Ctx(ctx).Err(resp.Error).Send()
			missing = append(missing, resp.Keys...)
			continue
		}

		missing = append(missing, resp.Missing...)

		for k, v := range resp.Results {
			results[k] = v
		}
	}

	return results, missing, nil
}

func (r *RedisProvider[ID, V]) getChunk(ctx context.Context, chunk []*Key[ID], requiredModelVersion uint16) redisChunkResponse[ID, V] {
	strSlice := make([]string, 0, len(chunk))
	for _, v := range chunk {
		strSlice = append(strSlice, v.Key)
	}

	vals, err := r.client.MGet(ctx, strSlice...).Result()
	if err != nil {
		return redisChunkResponse[ID, V]{
			Error: errors.WithStack(err),
			Keys:  chunk,
		}
	}

	resp := redisChunkResponse[ID, V]{
		Results: map[ID]*Entry[V]{},
	}

	for i, v := range vals {
		if v == nil {
			resp.Missing = append(resp.Missing, chunk[i])
			continue
		}

		var toUnpack []byte

		switch val := v.(type) {
		case []byte:
			toUnpack = val
		case string:
			toUnpack = []byte(val)
		}

		var item Entry[V]
		if err := msgpack.Unmarshal(toUnpack, &item); err != nil {
			zerolog.Ctx(ctx).Err(err).Str("key", chunk[i].Key).Msg("can not decode cached entry")
			resp.Missing = append(resp.Missing, chunk[i])
			continue
		}

		if !current(&item, requiredModelVersion) {
			resp.Missing = append(resp.Missing, chunk[i])
			continue
		}

		resp.Results[chunk[i].OriginalValue] = &item
	}

	return resp
}

func (r *RedisProvider[ID, V]) MSet(ctx context.Context, values map[string]*Entry[V], ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			b, err := msgpack.Marshal(v)
			if err != nil {
				zerolog.Ctx(ctx).Err(err).Str("key", k).Send()
				continue
			}
			pipe.Set(ctx, k, b, ttl)
		}

		return nil
	})

	return errors.WithStack(err)
}
