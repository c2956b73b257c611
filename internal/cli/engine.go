package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor"
	loamadapter "github.com/aretw0/arbor/pkg/adapters/loam"
	redisadapter "github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/ports"
)

// Source is a descriptor source the CLI can watch for changes.
type Source interface {
	ports.DescriptorSource
	ports.Watchable
}

// NewEngine builds an engine following the CLI conventions: debug hooks when
// --debug is set, Redis-backed history, locking and visited sets when an
// address is configured. The returned func releases the Redis connection.
func NewEngine(opts Options, logger *slog.Logger, extra ...arbor.Option) (*arbor.Engine, func() error, error) {
	engineOpts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithParallelism(opts.Parallel),
		arbor.WithOutput(opts.stdout()),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, arbor.WithLifecycleHooks(observability.LoggingHooks(logger)))
	}
	if opts.Strict {
		engineOpts = append(engineOpts, arbor.WithStrict())
	}

	closer := func() error { return nil }
	if addr := RedisAddr(opts.RedisAddr); addr != "" {
		client := redisadapter.NewClient(addr, "", 0)
		if err := client.Ping(context.Background()).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
		}
		logger.Debug("using redis backend", "addr", addr)

		engineOpts = append(engineOpts,
			arbor.WithRunStore(redisadapter.NewFromClient(client, redisadapter.WithTTL(opts.RunTTL))),
			arbor.WithLocker(redisadapter.NewLocker(client, redisadapter.DefaultPrefix)),
			arbor.WithVisitedSet(redisadapter.VisitedSets(client, redisadapter.DefaultPrefix, opts.RunTTL)),
		)
		closer = client.Close
	}

	engine, err := arbor.New(append(engineOpts, extra...)...)
	if err != nil {
		closer()
		return nil, nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, closer, nil
}

// OpenSource resolves where descriptors come from and the pipeline name.
// A loam directory wins over a pipeline file.
func OpenSource(opts Options, logger *slog.Logger) (Source, string, error) {
	if opts.Dir != "" {
		loader, err := loamadapter.Open(opts.Dir)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open task directory: %w", err)
		}
		return loader, pipelineName(opts, filepath.Base(filepath.Clean(opts.Dir))), nil
	}

	if opts.Path == "" {
		return nil, "", fmt.Errorf("a pipeline file or --dir is required")
	}
	src := pipeline.NewFileSource(opts.Path, pipeline.WithLogger(logger))
	name := ""
	if p, err := src.Pipeline(); err == nil {
		name = p.Name
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(opts.Path), filepath.Ext(opts.Path))
	}
	return src, pipelineName(opts, name), nil
}

func pipelineName(opts Options, fallback string) string {
	if opts.Name != "" {
		return opts.Name
	}
	return fallback
}
