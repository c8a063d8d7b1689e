package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/isesword/arrow-cdata-bridge/bridge"
	"github.com/isesword/arrow-cdata-bridge/columnar"
	"github.com/isesword/arrow-cdata-bridge/loopback"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/protobuf/types/known/structpb"
)

// foreignRuntime 是 CLI 需要的外部运行时接口，动态库和进程内运行时都满足
type foreignRuntime interface {
	columnar.Runtime
	AbiVersion() uint32
	EngineVersion() (string, error)
	Capabilities() (*structpb.Struct, error)
	Close() error
}

type options struct {
	configPath  string
	values      string
	runtimeName string
	libPath     string
	op          string
	wrap        bool
	dump        string
	metricsAddr string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flag.StringVar(&opts.values, "values", "[1, 2, 3]", "JSON array of int64 values (null allowed)")
	flag.StringVar(&opts.runtimeName, "runtime", "", "foreign runtime: loopback or library")
	flag.StringVar(&opts.libPath, "lib", "", "path of the bridge library (runtime=library)")
	flag.StringVar(&opts.op, "op", "", "operation applied as x op x: add, subtract or multiply")
	flag.BoolVar(&opts.wrap, "wrap", false, "wrap around on overflow instead of failing")
	flag.StringVar(&opts.dump, "dump", "", "write the result to this Arrow IPC file")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics on this address after the call")
	flag.Parse()

	// 只在这里退出，保证 defer 的清理（如卸载动态库）都已执行
	if err := execute(opts); err != nil {
		log.Fatal(err)
	}
}

func loadConfiguration(opts options) (*Configuration, error) {
	configuration := DefaultConfiguration()
	if opts.configPath != "" {
		var err error
		configuration, err = LoadConfiguration(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	// 命令行参数覆盖配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "runtime":
			configuration.Runtime = RuntimeType(opts.runtimeName)
		case "lib":
			configuration.Library = opts.libPath
		case "op":
			configuration.Operation = opts.op
		case "wrap":
			configuration.WrapOverflow = opts.wrap
		case "dump":
			configuration.Dump = opts.dump
		case "metrics-addr":
			configuration.Metrics.Address = opts.metricsAddr
		}
	})
	if err := configuration.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return configuration, nil
}

func execute(opts options) error {
	configuration, err := loadConfiguration(opts)
	if err != nil {
		return err
	}

	rt, err := openRuntime(configuration)
	if err != nil {
		return fmt.Errorf("failed to open runtime: %w", err)
	}
	defer rt.Close()

	if err := printInfo(rt); err != nil {
		return fmt.Errorf("failed to read runtime info: %w", err)
	}

	reg := prometheus.NewRegistry()
	metrics := columnar.NewMetrics(configuration.Metrics.Namespace, reg)
	pipeline := columnar.NewPipeline(rt,
		columnar.WithMetrics(metrics),
		columnar.WithLogger(log.New(os.Stderr, "[pipeline] ", log.LstdFlags)),
	)

	result, err := run(context.Background(), pipeline, configuration, []byte(opts.values))
	if err != nil {
		return fmt.Errorf("call failed: %w", err)
	}
	defer result.Release()

	out, err := json.Marshal(int64Values(result))
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Printf("Result: %s\n", out)

	if configuration.Dump != "" {
		if err := dumpIPC(configuration.Dump, configuration.Operation, result, pipeline.Allocator()); err != nil {
			return fmt.Errorf("failed to dump result: %w", err)
		}
		fmt.Printf("Wrote %s\n", configuration.Dump)
	}

	if configuration.Metrics.Address != "" {
		serveMetrics(configuration.Metrics.Address, reg)
	}
	return nil
}

// openRuntime 可在测试中替换
var openRuntime = openForeignRuntime

func openForeignRuntime(configuration *Configuration) (foreignRuntime, error) {
	switch configuration.Runtime {
	case Library:
		brg, err := bridge.LoadBridge(configuration.Library)
		if err != nil {
			return nil, err
		}
		return brg, nil
	default:
		return loopback.New(), nil
	}
}

func printInfo(rt foreignRuntime) error {
	fmt.Printf("ABI Version: %d\n", rt.AbiVersion())

	engineVer, err := rt.EngineVersion()
	if err != nil {
		return err
	}
	fmt.Printf("Engine Version: %s\n", engineVer)

	caps, err := rt.Capabilities()
	if err != nil {
		return err
	}
	fmt.Printf("Capabilities:\n%s\n", bridge.FormatCapabilities(caps))
	fmt.Printf("Zero copy: %t\n", columnar.ZeroCopySupported())
	return nil
}

// run hands the input to the foreign runtime, applies the configured
// operation there and reads the result back.
func run(ctx context.Context, p *columnar.Pipeline, configuration *Configuration, input []byte) (arrow.Array, error) {
	op, err := columnar.LookupBinaryOp(configuration.Operation, !configuration.WrapOverflow)
	if err != nil {
		return nil, err
	}

	arr, err := parseInt64s(input, p.Allocator())
	if err != nil {
		return nil, err
	}

	in, err := p.ToForeign(arr)
	if err != nil {
		return nil, fmt.Errorf("failed to send input: %w", err)
	}
	defer in.Free()

	out, err := p.Apply(ctx, in.Handle(), op)
	if err != nil {
		return nil, err
	}
	defer out.Free()

	return p.FromForeign(out.Handle())
}

func parseInt64s(input []byte, mem memory.Allocator) (*array.Int64, error) {
	var values []*int64
	if err := json.Unmarshal(input, &values); err != nil {
		return nil, fmt.Errorf("failed to parse values: %w", err)
	}

	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.Reserve(len(values))
	for _, v := range values {
		if v == nil {
			b.AppendNull()
			continue
		}
		b.Append(*v)
	}
	return b.NewInt64Array(), nil
}

func int64Values(arr arrow.Array) []*int64 {
	typed, ok := arr.(*array.Int64)
	if !ok {
		return nil
	}
	out := make([]*int64, typed.Len())
	for i := range out {
		if typed.IsValid(i) {
			v := typed.Value(i)
			out[i] = &v
		}
	}
	return out
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	server := NewMetricsServer(addr, reg)
	errc := server.StartAsync()
	defer server.Stop()
	log.Printf("Serving metrics on %s, press Ctrl+C to stop", addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	select {
	case <-ctx.Done():
	case err, ok := <-errc:
		if ok {
			log.Printf("Metrics server failed: %v", err)
		}
	}
}
