package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	montage "github.com/mfay/montage"
	"github.com/mfay/montage/cache"
	"github.com/mfay/montage/color"
	"github.com/mfay/montage/graph"
	"github.com/mfay/montage/media"
	"github.com/mfay/montage/render"
	"github.com/mfay/montage/web"
)

func main() {
	app := &cli.App{
		Name:        "montage",
		Description: "node-graph render dispatch engine",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx *cli.Context) error {
			level := slog.LevelInfo
			if ctx.Bool("verbose") {
				level = slog.LevelDebug
			}
			montage.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "render",
				Usage:  "render a frame range and its audio into the store",
				Action: commandRender,
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:  "config",
						Usage: "path to the configuration file",
						Value: "montage.hcl",
					},
					&cli.PathFlag{
						Name:     "graph",
						Usage:    "path to the graph document",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "range start (rational seconds)",
						Value: "0/1",
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "range end (rational seconds)",
						Required: true,
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "serve the status and render API",
				Action: commandServe,
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:  "config",
						Usage: "path to the configuration file",
						Value: "montage.hcl",
					},
					&cli.PathFlag{
						Name:     "graph",
						Usage:    "path to the graph document",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "bind",
						Usage: "listen address",
						Value: ":8930",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// engine bundles everything the commands assemble from the config file.
type engine struct {
	backend   *montage.Backend
	store     cache.FrameStore
	hashCache *cache.FrameHashCache
	video     media.VideoParams
}

func setupEngine(configPath, graphPath string) (*engine, error) {
	cfg, err := montage.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	vp, err := cfg.VideoParams()
	if err != nil {
		return nil, err
	}
	ap, err := cfg.AudioParams()
	if err != nil {
		return nil, err
	}

	b := montage.NewBackend(
		montage.NewPool(cfg.Concurrency),
		render.Factory(),
		montage.BackendOpts{TrackLiveChanges: cfg.TrackLiveChanges},
	)
	b.SetVideoParams(vp)
	b.SetAudioParams(ap)

	if cfg.Color != nil {
		mgr := color.NewManager()
		working, display := cfg.Color.WorkingSpace, cfg.Color.DisplaySpace
		if working == "" {
			working = mgr.ReferenceSpace()
		}
		if display == "" {
			display = mgr.DefaultInputSpace()
		}
		transform, err := color.NewTransform(mgr, working, display)
		if err != nil {
			return nil, err
		}
		b.SetColorTransform(transform)
	}

	if cfg.Preview != nil {
		b.SetPreviewSink(cache.NewPreview(cfg.Preview.Width))
	}

	var store cache.FrameStore
	for _, cb := range cfg.Caches {
		switch cb.Kind {
		case "disk":
			store = cache.NewDiskStore(cb.Path)
		case "redis":
			store = cache.NewRedisStore(cb.Addr)
		default:
			return nil, fmt.Errorf("unknown cache kind %q", cb.Kind)
		}
		break
	}

	doc, err := graph.LoadDocument(graphPath, render.Builders())
	if err != nil {
		return nil, err
	}
	if err := b.SetSubject(doc.Output); err != nil {
		return nil, err
	}

	return &engine{
		backend:   b,
		store:     store,
		hashCache: cache.NewFrameHashCache(vp.Timebase),
		video:     vp,
	}, nil
}

func commandRender(cliCtx *cli.Context) error {
	from, err := media.ParseRational(cliCtx.String("from"))
	if err != nil {
		return fmt.Errorf("bad --from: %w", err)
	}
	to, err := media.ParseRational(cliCtx.String("to"))
	if err != nil {
		return fmt.Errorf("bad --to: %w", err)
	}
	rng := media.NewTimeRange(from, to)

	eng, err := setupEngine(cliCtx.Path("config"), cliCtx.Path("graph"))
	if err != nil {
		return err
	}
	defer eng.backend.Close()

	ctx := context.Background()
	times := eng.hashCache.FrameListFromRange(rng)

	ticket := eng.backend.Hash(times)
	res, err := ticket.Wait(ctx)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}

	rendered, shared := 0, 0
	for i, t := range times {
		hash := res.Hashes[i]
		eng.hashCache.Set(t, hash)

		if eng.store != nil {
			if ok, err := eng.store.Has(ctx, hash); err != nil {
				return err
			} else if ok {
				shared++
				continue
			}
		}

		frameRes, err := eng.backend.RenderFrame(t).Wait(ctx)
		if err != nil {
			return fmt.Errorf("frame %s: %w", t, err)
		}
		rendered++
		if eng.store != nil {
			if err := eng.store.Save(ctx, hash, frameRes.Frame); err != nil {
				return err
			}
		}
	}

	audioRes, err := eng.backend.RenderAudio(rng).Wait(ctx)
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	montage.Logger().Info("render finished",
		"frames", len(times),
		"rendered", rendered,
		"cache_hits", shared,
		"audio_samples", audioRes.Audio.SampleCount(),
	)
	return nil
}

func commandServe(cliCtx *cli.Context) error {
	eng, err := setupEngine(cliCtx.Path("config"), cliCtx.Path("graph"))
	if err != nil {
		return err
	}
	defer eng.backend.Close()

	srv := web.NewServer(eng.backend, eng.store, eng.hashCache)
	bind := cliCtx.String("bind")
	montage.Logger().Info("serving", "bind", bind)
	return http.ListenAndServe(bind, srv)
}
