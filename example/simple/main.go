package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	cache "github.com/skynet2/labelcache"
)

const ModelVersion = uint16(1)

type Product struct {
	Name    string
	Barcode string
}

// catalog stands in for the backend. Id 13 is broken and fails every batch it is part of.
var catalog = map[int]Product{
	1:  {Name: "Office Chair", Barcode: "601647855631"},
	2:  {Name: "Desk Lamp", Barcode: "601647855632"},
	3:  {Name: "Whiteboard", Barcode: "601647855633"},
	13: {Name: "Broken", Barcode: "000000000013"},
}

func fetchProducts(ctx context.Context, kind string, ids []int) (map[int]Product, error) {
	zerolog.Ctx(ctx).Info().Str("kind", kind).Ints("ids", ids).Msg("batch fetch")

	out := map[int]Product{}
	for _, id := range ids {
		if id == 13 {
			return nil, errors.New("record 13 is locked")
		}
		if p, ok := catalog[id]; ok {
			out[id] = p
		}
	}

	return out, nil
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	lru := cache.NewLRUProvider[int, Product](100, time.Hour)

	resolver := cache.NewResolverBuilder[int, Product](fetchProducts, lru).
		WithModelVersion(ModelVersion).
		WithLogger(logger).
		WithKind("product.product", cache.KindOptions[Product]{
			Index: func(p Product) []string { return []string{p.Barcode} },
		}).
		Build()
	defer resolver.Close()

	resolver.Subscribe(func(e cache.Event[int]) {
		logger.Info().Str("kind", e.Kind).Ints("resolved", e.Resolved).Ints("absent", e.Absent).
			Bool("bisected", e.Bisected).Msg("batch done")
	})

	// one render pass asks for every row at once
	for _, id := range []int{1, 2, 3, 13, 42} {
		if _, ok, err := resolver.Resolve("product.product", id); err != nil || ok {
			logger.Fatal().Msg("nothing should be cached yet")
		}
	}

	for _, id := range []int{1, 2, 3, 13, 42} {
		p, err := resolver.Load(ctx, "product.product", id)
		switch {
		case errors.Is(err, cache.ErrUnresolvableIdentifier):
			fmt.Printf("%d: <missing>\n", id)
		case err != nil:
			logger.Fatal().Err(err).Send()
		default:
			fmt.Printf("%d: %s\n", id, p.Name)
		}
	}

	if p, ok := resolver.GetByIndex("product.product", "601647855632"); ok {
		fmt.Printf("scanned 601647855632: %s\n", p.Name)
	}
}
