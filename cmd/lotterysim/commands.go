package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	db "lottery/debug"
	"lottery/kernel"
	"lottery/param"
	"lottery/proc"
	"lottery/sched/clock"
	"lottery/sched/lottery"
	"lottery/simulation/currency"
	"lottery/simulation/workload"
	"lottery/util/perf"
	"lottery/util/rand"
	"lottery/util/tracing"
)

const SVCNAME = "lotterysim"

var runCommand = cli.Command{
	Name:  "run",
	Usage: "run the currency experiment and check each user's share",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "params YAML file"},
		cli.StringFlag{Name: "workload", Usage: "workload YAML file (default: 1/4/14 children)"},
		cli.Uint64Flag{Name: "seed", Usage: "lottery seed; 0 picks one from the time"},
		cli.Uint64Flag{Name: "warmup", Usage: "quanta before the first snapshot"},
		cli.Uint64Flag{Name: "window", Usage: "quanta between snapshots"},
		cli.Float64Flag{Name: "tolerance", Value: 0.1, Usage: "max relative error per user"},
		cli.BoolFlag{Name: "realtime", Usage: "one quantum per configured quantum of wall-clock time"},
		cli.StringFlag{Name: "metrics-addr", Usage: "serve prometheus metrics on this address"},
		cli.StringFlag{Name: "trace", Usage: "write spans to this file"},
		cli.StringFlag{Name: "jaeger", Usage: "send spans to the jaeger agent on this host"},
	},
	Action: runAction,
}

var genCommand = cli.Command{
	Name:  "gen",
	Usage: "print a random workload as YAML",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "params YAML file"},
		cli.IntFlag{Name: "users", Value: 3, Usage: "number of users"},
		cli.Float64Flag{Name: "lambda", Value: 4, Usage: "mean children per user"},
		cli.Uint64Flag{Name: "seed", Usage: "generator seed; 0 picks one from the time"},
	},
	Action: genAction,
}

func loadConfig(ctx *cli.Context) (*param.Config, error) {
	if pn := ctx.String("config"); pn != "" {
		return param.Load(pn)
	}
	return param.Default(), nil
}

func loadWorkload(ctx *cli.Context) (*workload.Workload, error) {
	wl := workload.Default()
	if pn := ctx.String("workload"); pn != "" {
		var err error
		if wl, err = workload.Load(pn); err != nil {
			return nil, err
		}
	}
	if ctx.IsSet("warmup") {
		wl.Warmup = proc.Ttick(ctx.Uint64("warmup"))
	}
	if ctx.IsSet("window") {
		wl.Window = proc.Ttick(ctx.Uint64("window"))
	}
	return wl, nil
}

func newTracer(ctx *cli.Context) (*tracing.Tracer, error) {
	if host := ctx.String("jaeger"); host != "" {
		return tracing.InitJaeger(SVCNAME, host)
	}
	if pn := ctx.String("trace"); pn != "" {
		f, err := os.Create(pn)
		if err != nil {
			return nil, errors.Wrapf(err, "trace file")
		}
		return tracing.InitWriter(SVCNAME, f)
	}
	return nil, nil
}

func serveMetrics(addr string, m *perf.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			db.DPrintf(db.ERROR, "Metrics server %v: %v", addr, err)
		}
	}()
}

func runAction(ctx *cli.Context) error {
	config, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet("seed") {
		config.Sched.SEED = ctx.Uint64("seed")
	}
	wl, err := loadWorkload(ctx)
	if err != nil {
		return err
	}
	tracer, err := newTracer(ctx)
	if err != nil {
		return err
	}
	defer tracer.Shutdown()

	m := perf.NewMetrics()
	if addr := ctx.String("metrics-addr"); addr != "" {
		serveMetrics(addr, m)
	}

	var clk clock.Clock = clock.NewVirtual()
	if ctx.Bool("realtime") {
		clk = clock.NewTimer(config.Sched.QUANTUM)
	}

	c, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	k := kernel.NewKernel(config, lottery.WithMetrics(m))
	db.DPrintf(db.SIM_CURRENCY, "Run %v on %v", wl, config)
	rep, err := currency.NewHarness(k, wl, clk, tracer).Run(c)
	if err != nil {
		return err
	}
	tracer.Flush()
	fmt.Println(rep)
	return rep.Check(ctx.Float64("tolerance"))
}

func genAction(ctx *cli.Context) error {
	config, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	seed := ctx.Uint64("seed")
	if seed == 0 {
		seed = rand.TimeSeed()
	}
	wl := workload.Generate(config, ctx.Int("users"), ctx.Float64("lambda"), rand.NewSource(seed))
	b, err := wl.Encode()
	if err != nil {
		return err
	}
	fmt.Printf("# seed %d\n%s", seed, b)
	return nil
}
