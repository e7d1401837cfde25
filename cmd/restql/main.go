package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/hanpama/restql/internal/eventbus"
	"github.com/hanpama/restql/internal/events"
	"github.com/hanpama/restql/internal/grpctp"
	"github.com/hanpama/restql/internal/language"
	"github.com/hanpama/restql/internal/otel"
	"github.com/hanpama/restql/internal/protoview"
	"github.com/hanpama/restql/internal/reqid"
	"github.com/hanpama/restql/internal/selector"
	"github.com/hanpama/restql/internal/server"
	"github.com/hanpama/restql/internal/source"
)

const rootUsage = `restql: select parts of an object graph by dotted field paths

USAGE:
  restql <command> [flags]

COMMANDS:
  select           Project a YAML or JSON document onto field paths
  serve            Serve projections of entities over HTTP
  describe         Print the protobuf view of a selection on a gRPC result
  help             Show help for any command
`

const selectUsage = `select FLAGS:
  -in <file>                 YAML or JSON document, "-" for stdin (default: -)
  -key <key>                 Select one entity of a keyed document instead of the whole document
  -key-field <name>          Attribute keying items of a sequence document (default: id)
  -fields <a,b.c>            Comma separated field paths. Repeatable
  -selection <{a b{c}}>      Fields as a GraphQL selection set
  -fold                      Match attribute names case-insensitively as a fallback
  -format <json|yaml|dump>   Output format; dump prints Go values (default: json)
  -pretty                    Indent JSON output
`

const serveUsage = `serve FLAGS:
  -server.addr <addr>                 HTTP listen address (default: :8080)
  -server.pretty                      Pretty-print JSON responses
  -server.timeout <duration>          Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body-bytes <n>          Limit POST bodies (default: 1048576)
  -server.cors-origin <origin>        Allow a CORS origin, "*" for any. Repeatable
  -server.metadata-header <name>      Forward HTTP header to gRPC metadata. Repeatable
  -source.file <file>                 Serve entities of a YAML or JSON document
  -source.key-field <name>            Attribute keying items of a sequence document (default: id)
  -source.sqlite <file>               Serve rows of a SQLite database
  -source.table <name>                Table to serve rows from (required with -source.sqlite)
  -source.key-column <name>           Column matched against the key (default: id)
  -source.json-column <name>          Column holding JSON text. Repeatable
  -grpc.descriptors <file>            Binary FileDescriptorSet describing the method
  -grpc.method <pkg.Svc/Method>       Unary method returning entities
  -grpc.target <host:port>            Endpoint serving the method. Repeatable
  -grpc.key-field <name>              Request field receiving the key (default: first field)
  -grpc.result-field <name>           Response field holding the entity
  -grpc.rpc-timeout <duration>        RPC timeout, e.g. 3s (default: 3s)
  -grpc.failover N                    Further endpoints to try when one is unavailable (default: 1)
  -selector.fold                      Match attribute names case-insensitively as a fallback
  -log.requests                       Log every HTTP request
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: restql)
Exactly one of -source.file, -source.sqlite or -grpc.method is required.
`

const describeUsage = `describe FLAGS:
  -grpc.descriptors <file>       Binary FileDescriptorSet (required)
  -grpc.method <pkg.Svc/Method>  Unary method returning entities (required)
  -grpc.result-field <name>      Response field holding the entity
  -fields <a,b.c>                Comma separated field paths. Repeatable
  -selection <{a b{c}}>          Fields as a GraphQL selection set
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	global := flag.NewFlagSet("restql", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "select":
		return cmdSelect(cmdArgs, stdin, stdout)
	case "serve":
		return cmdServe(cmdArgs)
	case "describe":
		return cmdDescribe(cmdArgs, stdout)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "select":
		fmt.Fprint(stdout, selectUsage)
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "describe":
		fmt.Fprint(stdout, describeUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdSelect(args []string, stdin io.Reader, stdout io.Writer) error {
	in := "-"
	key := ""
	keyField := "id"
	selection := ""
	fold := false
	format := "json"
	pretty := false
	var fields stringListFlag

	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&in, "in", in, "YAML or JSON document")
	fs.StringVar(&key, "key", key, "Entity key")
	fs.StringVar(&keyField, "key-field", keyField, "Attribute keying items of a sequence document")
	fs.Var(&fields, "fields", "Comma separated field paths")
	fs.StringVar(&selection, "selection", selection, "Fields as a GraphQL selection set")
	fs.BoolVar(&fold, "fold", fold, "Case-insensitive name fallback")
	fs.StringVar(&format, "format", format, "Output format")
	fs.BoolVar(&pretty, "pretty", pretty, "Indent JSON output")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, selectUsage)
		return err
	}
	if format != "json" && format != "yaml" && format != "dump" {
		fmt.Fprint(os.Stderr, selectUsage)
		return fmt.Errorf("unknown -format %q", format)
	}
	paths, err := language.Paths(fields, selection)
	if err != nil {
		return err
	}

	var data []byte
	if in == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(in)
	}
	if err != nil {
		return err
	}

	var entity any
	if key == "" {
		entity, err = source.Decode(data)
	} else {
		var f *source.File
		if f, err = source.ParseFile(data, source.WithKeyField(keyField)); err == nil {
			entity, err = f.Fetch(context.Background(), key)
		}
	}
	if err != nil {
		return err
	}

	var opts []selector.Option
	if fold {
		opts = append(opts, selector.WithFoldedNames())
	}
	result, err := selector.New(opts...).SelectPaths(entity, paths)
	if err != nil {
		return err
	}

	switch format {
	case "dump":
		spew.Fdump(stdout, result)
		return nil
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(server.JSONValue(result))
}

type grpcFlags struct {
	descriptors string
	method      string
	targets     stringListFlag
	keyField    string
	resultField string
	rpcTimeout  time.Duration
	failover    int
}

func (g *grpcFlags) register(fs *flag.FlagSet) {
	g.rpcTimeout = 3 * time.Second
	g.failover = 1
	fs.StringVar(&g.descriptors, "grpc.descriptors", "", "Binary FileDescriptorSet")
	fs.StringVar(&g.method, "grpc.method", "", "Unary method returning entities")
	fs.StringVar(&g.resultField, "grpc.result-field", "", "Response field holding the entity")
}

func (g *grpcFlags) registerTransport(fs *flag.FlagSet) {
	fs.Var(&g.targets, "grpc.target", "Endpoint serving the method")
	fs.StringVar(&g.keyField, "grpc.key-field", "", "Request field receiving the key")
	fs.DurationVar(&g.rpcTimeout, "grpc.rpc-timeout", g.rpcTimeout, "RPC timeout")
	fs.IntVar(&g.failover, "grpc.failover", g.failover, "Further endpoints to try when one is unavailable")
}

func cmdServe(args []string) error {
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	maxBody := int64(1 << 20)
	var corsOrigins, metadataHeaders stringListFlag
	file := ""
	fileKeyField := "id"
	sqlitePath := ""
	table := ""
	keyColumn := "id"
	var jsonColumns stringListFlag
	var gf grpcFlags
	fold := false
	logRequests := false
	otelEndpoint := ""
	otelService := "restql"

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body-bytes", maxBody, "Limit POST bodies")
	fs.Var(&corsOrigins, "server.cors-origin", "Allow a CORS origin")
	fs.Var(&metadataHeaders, "server.metadata-header", "Forward HTTP header to gRPC metadata")
	fs.StringVar(&file, "source.file", file, "YAML or JSON document")
	fs.StringVar(&fileKeyField, "source.key-field", fileKeyField, "Attribute keying items")
	fs.StringVar(&sqlitePath, "source.sqlite", sqlitePath, "SQLite database")
	fs.StringVar(&table, "source.table", table, "Table to serve rows from")
	fs.StringVar(&keyColumn, "source.key-column", keyColumn, "Column matched against the key")
	fs.Var(&jsonColumns, "source.json-column", "Column holding JSON text")
	gf.register(fs)
	gf.registerTransport(fs)
	fs.BoolVar(&fold, "selector.fold", fold, "Case-insensitive name fallback")
	fs.BoolVar(&logRequests, "log.requests", logRequests, "Log every HTTP request")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	configured := 0
	for _, set := range []bool{file != "", sqlitePath != "", gf.method != ""} {
		if set {
			configured++
		}
	}
	if configured != 1 {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("exactly one source is required")
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()
	if logRequests {
		defer logHTTP()()
	}

	var (
		src  source.Source
		name string
	)
	switch {
	case file != "":
		f, err := source.OpenFile(file, source.WithKeyField(fileKeyField))
		if err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
		log.Printf("serving %d entities from %s", f.Len(), file)
		src, name = f, "file"
	case sqlitePath != "":
		if table == "" {
			return fmt.Errorf("-source.table is required with -source.sqlite")
		}
		db, err := sql.Open("sqlite", sqlitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		s, err := source.NewSQL(db, table, source.WithKeyColumn(keyColumn), source.WithJSONColumns(jsonColumns...))
		if err != nil {
			return err
		}
		src, name = s, "sqlite:"+table
	default:
		g, closeTransport, err := newGRPCSource(&gf)
		if err != nil {
			return err
		}
		defer closeTransport()
		src, name = g, "grpc:"+string(g.Method().FullName())
	}

	sopts := []server.Option{server.WithSourceName(name), server.WithMaxBodyBytes(maxBody)}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(corsOrigins...))
	}
	if len(metadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(metadataHeaders...))
	}
	if fold {
		sopts = append(sopts, server.WithSelector(selector.New(selector.WithFoldedNames())))
	}
	h := server.New(source.Observe(name, src), sopts...)

	log.Printf("restql listening on %s (source %s)", addr, name)
	return http.ListenAndServe(addr, h)
}

func newGRPCSource(gf *grpcFlags) (*source.GRPC, func(), error) {
	if gf.descriptors == "" {
		return nil, nil, fmt.Errorf("-grpc.descriptors is required with -grpc.method")
	}
	if len(gf.targets) == 0 {
		return nil, nil, fmt.Errorf("-grpc.target is required with -grpc.method")
	}
	md, err := source.LoadMethod(gf.descriptors, gf.method)
	if err != nil {
		return nil, nil, err
	}
	trOpts := []grpctp.Option{
		grpctp.WithProvider(grpctp.Target(gf.targets)),
		grpctp.WithFailover(gf.failover),
	}
	if gf.rpcTimeout > 0 {
		trOpts = append(trOpts, grpctp.WithRPCTimeout(gf.rpcTimeout))
	}
	tr := grpctp.New(trOpts...)

	var opts []source.GRPCOption
	if gf.keyField != "" {
		opts = append(opts, source.WithRequestKeyField(gf.keyField))
	}
	if gf.resultField != "" {
		opts = append(opts, source.WithResultField(gf.resultField))
	}
	g, err := source.NewGRPC(tr, md, opts...)
	if err != nil {
		_ = tr.Close()
		return nil, nil, err
	}
	return g, func() { _ = tr.Close() }, nil
}

// logHTTP logs finished requests with their request ID.
func logHTTP() (unsubscribe func()) {
	return eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		rid, _ := reqid.FromContext(ctx)
		if e.Err != nil {
			log.Printf("%s %s %d %s rid=%d err=%q", e.Request.Method, e.Request.URL.RequestURI(), e.Status, e.Duration.Round(time.Microsecond), rid, e.Err)
			return
		}
		log.Printf("%s %s %d %s rid=%d", e.Request.Method, e.Request.URL.RequestURI(), e.Status, e.Duration.Round(time.Microsecond), rid)
	})
}

func cmdDescribe(args []string, stdout io.Writer) error {
	var gf grpcFlags
	var fields stringListFlag
	selection := ""

	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	gf.register(fs)
	fs.Var(&fields, "fields", "Comma separated field paths")
	fs.StringVar(&selection, "selection", selection, "Fields as a GraphQL selection set")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, describeUsage)
		return err
	}
	if gf.descriptors == "" || gf.method == "" {
		fmt.Fprint(os.Stderr, describeUsage)
		return fmt.Errorf("-grpc.descriptors and -grpc.method are required")
	}
	paths, err := language.Paths(fields, selection)
	if err != nil {
		return err
	}
	md, err := source.LoadMethod(gf.descriptors, gf.method)
	if err != nil {
		return err
	}
	var opts []source.GRPCOption
	if gf.resultField != "" {
		opts = append(opts, source.WithResultField(gf.resultField))
	}
	// describing needs no transport; only descriptors are inspected
	g, err := source.NewGRPC(nil, md, opts...)
	if err != nil {
		return err
	}
	out, err := protoview.Describe(g.ResultDescriptor(), paths)
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, out)
	return err
}
