package service_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/saiset-co/sai-filecache/config"
	"github.com/saiset-co/sai-filecache/logger"
	"github.com/saiset-co/sai-filecache/service"
)

func ExampleService_Resolve() {
	dir, err := os.MkdirTemp("", "filecache-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	cfg := config.Defaults()
	cfg.Store.Path = filepath.Join(dir, "cache.db")

	svc, err := service.NewService(cfg, service.WithLogger(logger.NewNop()))
	if err != nil {
		panic(err)
	}
	defer svc.Close()

	ctx := context.Background()
	if err := svc.InitCache(ctx); err != nil {
		panic(err)
	}

	doc := filepath.Join(dir, "contract.pdf")
	if err := os.WriteFile(doc, []byte("%PDF-1.7"), 0o600); err != nil {
		panic(err)
	}

	analyze := func(ctx context.Context, digest string) (string, error) {
		return `{"pages":1}`, nil
	}

	for i := 0; i < 2; i++ {
		result, err := svc.Resolve(ctx, doc, "https://api.example/v1/analyze", analyze)
		if err != nil {
			panic(err)
		}
		fmt.Println(result.Hit, result.Payload)
	}

	// Output:
	// false {"pages":1}
	// true {"pages":1}
}
