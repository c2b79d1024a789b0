// Command gateway runs the robogate agent-facing server: it wires the
// adapters, safety envelope, recorder, aggregator, lease coordinator,
// rewind engine, code executor, and service supervisor onto the HTTP/WS
// surface in gateway.Server. The same binary, re-exec'd with
// ROBOGATE_SCRIPT_MODE=1, instead runs as a sandboxed script child
// talking back to the parent over the sdk.Client RPC shim (see
// executor.Execute) — mirroring the teacher's single-binary
// cmd/server entrypoint, generalized to a second entry path instead of
// a second binary.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/arcwell/robogate/adapters"
	"github.com/arcwell/robogate/aggregator"
	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/commands"
	"github.com/arcwell/robogate/envelope"
	"github.com/arcwell/robogate/executor"
	"github.com/arcwell/robogate/gateway"
	"github.com/arcwell/robogate/lease"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/recorder"
	"github.com/arcwell/robogate/rewind"
	"github.com/arcwell/robogate/sdk"
	"github.com/arcwell/robogate/shared"
	"github.com/arcwell/robogate/supervisor"
	"github.com/arcwell/robogate/types"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	if os.Getenv(executor.ScriptModeEnv) == "1" {
		if err := runScriptChild(); err != nil {
			log.Printf("❌ script child failed: %v", err)
			os.Exit(exitFailure)
		}
		os.Exit(exitSuccess)
	}

	cfg := parseFlags()

	logFormat := logger.ParseFormat(cfg.logFormat)
	log_ := logger.NewStdLogger(cfg.logLevel, logFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log_.Infow("🛑 received signal, initiating graceful shutdown", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, cfg, log_); err != nil {
		log_.Errorw("❌ gateway exited with error", "error", err)
		os.Exit(exitFailure)
	}
	log_.Infow("✅ gateway shut down cleanly")
}

type flags struct {
	host        string
	port        int
	logLevel    string
	logFormat   string
	dataDir     string
	armAddr     string
	baseAddr    string
	gripperAddr string
	camerasAddr string
	armJoints   int
	armHz       float64

	features *shared.FeatureFlags
}

func parseFlags() flags {
	var f flags
	var dryRun, autoStartServices, noServiceManager bool
	var autoRewind, strictVelocity, enableMetrics, structuredLogging bool

	defaults := shared.DefaultFeatureFlags()

	flag.StringVar(&f.host, "host", "0.0.0.0", "listen host")
	flag.IntVar(&f.port, "port", 8080, "listen port")
	flag.BoolVar(&dryRun, "dry-run", true, "use in-memory simulated backends instead of real hardware")
	flag.BoolVar(&autoStartServices, "auto-start-services", defaults.Runtime.AutoStartServices, "start every supervised service at launch, in dependency order")
	flag.BoolVar(&noServiceManager, "no-service-manager", defaults.Runtime.NoServiceManager, "disable the service supervisor entirely (useful when services are run externally)")
	flag.BoolVar(&autoRewind, "auto-rewind", defaults.Safety.AutoRewindEnabled, "run the auto-rewind monitor, triggering a rewind on envelope violations")
	flag.BoolVar(&strictVelocity, "strict-velocity-limits", defaults.Safety.StrictVelocityLimits, "reject out-of-bounds velocity commands instead of clamping them")
	flag.BoolVar(&enableMetrics, "enable-metrics", defaults.Observability.EnableMetrics, "report the metrics flag in the startup log (no metrics endpoint is served)")
	flag.BoolVar(&structuredLogging, "structured-logging", defaults.Observability.StructuredLogging, "emit JSON logs instead of text (equivalent to --log-format=json)")
	flag.StringVar(&f.logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
	flag.StringVar(&f.logFormat, "log-format", "text", "log output format (text, json)")
	flag.StringVar(&f.dataDir, "data-dir", ".", "directory for the supervisor's PID file")
	flag.StringVar(&f.armAddr, "arm-addr", "", "real arm controller address (required unless --dry-run)")
	flag.StringVar(&f.baseAddr, "base-addr", "", "real base controller address (required unless --dry-run)")
	flag.StringVar(&f.gripperAddr, "gripper-addr", "", "real gripper controller address (required unless --dry-run)")
	flag.StringVar(&f.camerasAddr, "cameras-addr", "", "real camera server address (required unless --dry-run)")
	flag.IntVar(&f.armJoints, "arm-joints", 7, "number of arm joints (Franka Panda default: 7)")
	flag.Float64Var(&f.armHz, "arm-hz", 50, "arm command streaming rate, in Hz")
	flag.Parse()

	f.features = shared.NewFeatureFlags(defaults,
		shared.WithDryRun(dryRun),
		shared.WithAutoStartServices(autoStartServices),
		shared.WithNoServiceManager(noServiceManager),
		shared.WithAutoRewind(autoRewind),
		shared.WithStrictVelocityLimits(strictVelocity),
		shared.WithMetrics(enableMetrics),
		shared.WithStructuredLogging(structuredLogging),
	)
	if f.features.Observability.StructuredLogging {
		f.logFormat = "json"
	}
	return f
}

// run builds every component and serves until ctx is cancelled. On
// cancellation the HTTP server drains in-flight requests (open
// WebSocket sessions are not closed by it), then the deferred stops run
// in reverse: supervised services in reverse dependency order, the
// auto-rewind monitor, the lease revoker, and the aggregator. The held
// lease is not revoked, a running code execution is not stopped, and
// the adapters are not disconnected.
func run(ctx context.Context, f flags, log logger.Logger) error {
	clk := clock.New()

	set, err := buildAdapterSet(f, clk, log)
	if err != nil {
		return fmt.Errorf("build adapters: %w", err)
	}
	if err := connectAll(ctx, set); err != nil {
		return fmt.Errorf("connect adapters: %w", err)
	}

	envCfg := defaultEnvelopeConfig()
	envCfg.StrictVelocityLimits = f.features.Safety.StrictVelocityLimits
	env := envelope.New(envCfg)

	rec := recorder.New(recorder.DefaultConfig(), clk)

	agg := aggregator.New(aggregator.DefaultConfig(), set, clk, log)
	agg.Start(ctx)
	defer agg.Stop()

	leaseCoord := lease.New(clk, log)
	leaseCoord.Start(ctx)
	defer leaseCoord.Stop()

	rewindCfg := rewind.DefaultConfig()
	rewindEngine := rewind.New(rewindCfg, rec, env, set, clk, log)

	feed := commands.NewFeed()
	cmds := commands.New(set, env, rec, agg, rewindEngine, clk, feed)

	if f.features.Safety.AutoRewindEnabled {
		monitor := rewind.NewMonitor(rewindCfg, rewindEngine, env, agg)
		monitor.Start(ctx)
		defer monitor.Stop()
	} else {
		log.Infow("auto-rewind monitor disabled by --auto-rewind=false")
	}

	exec := executor.New(executor.DefaultConfig(), cmds, clk, log)

	var sup *supervisor.Supervisor
	if !f.features.Runtime.NoServiceManager {
		sup, err = buildSupervisor(f, clk, log)
		if err != nil {
			return fmt.Errorf("build supervisor: %w", err)
		}
		sup.Start(ctx)
		defer sup.Stop(context.Background())

		if f.features.Runtime.AutoStartServices {
			if err := sup.AutoStartAll(ctx); err != nil {
				log.Warnw("auto-start did not complete cleanly", "error", err)
			}
		}
	} else {
		sup, _ = supervisor.New(supervisor.DefaultConfig(), nil, clk, log, f.features.Runtime.DryRun, nil)
	}

	gwCfg := gateway.DefaultConfig()
	gateway.WithHostPort(f.host, f.port)(&gwCfg)

	srv := gateway.New(gwCfg, gateway.Dependencies{
		Commands:   cmds,
		Lease:      leaseCoord,
		Recorder:   rec,
		Aggregator: agg,
		Rewind:     rewindEngine,
		Executor:   exec,
		Supervisor: sup,
	}, log)

	log.Infow("🚀 gateway starting", "host", f.host, "port", f.port, "dry_run", f.features.Runtime.DryRun,
		"auto_rewind", f.features.Safety.AutoRewindEnabled, "metrics", f.features.Observability.EnableMetrics)
	return srv.ListenAndServe(ctx)
}

func buildAdapterSet(f flags, clk clock.Clock, log logger.Logger) (*adapters.Set, error) {
	if f.features.Runtime.DryRun {
		return adapters.NewDryRunSet(clk, f.armJoints), nil
	}
	if f.armAddr == "" || f.baseAddr == "" || f.gripperAddr == "" || f.camerasAddr == "" {
		return nil, fmt.Errorf("--arm-addr, --base-addr, --gripper-addr and --cameras-addr are all required without --dry-run")
	}
	return &adapters.Set{
		Arm:     adapters.NewRemoteArm(f.armAddr, f.armHz, f.armJoints, log),
		Base:    adapters.NewRemoteBase(f.baseAddr, log),
		Gripper: adapters.NewRemoteGripper(f.gripperAddr, log),
		Cameras: adapters.NewRemoteCameras(f.camerasAddr, log),
	}, nil
}

func connectAll(ctx context.Context, set *adapters.Set) error {
	if set.Arm != nil {
		if err := set.Arm.Connect(ctx); err != nil {
			return fmt.Errorf("arm: %w", err)
		}
	}
	if set.Base != nil {
		if err := set.Base.Connect(ctx); err != nil {
			return fmt.Errorf("base: %w", err)
		}
	}
	if set.Gripper != nil {
		if err := set.Gripper.Connect(ctx); err != nil {
			return fmt.Errorf("gripper: %w", err)
		}
	}
	if set.Cameras != nil {
		if err := set.Cameras.Connect(ctx); err != nil {
			return fmt.Errorf("cameras: %w", err)
		}
	}
	return nil
}

// defaultEnvelopeConfig bounds a Franka Panda-class arm and the mobile
// base to conservative figures. The envelope config is fixed at
// launch; no endpoint changes it.
func defaultEnvelopeConfig() envelope.Config {
	jointLimit := envelope.Limit{Min: -2.8973, Max: 2.8973}
	cfg := envelope.Config{
		MaxArmJointVelocity:    2.1,
		MaxArmLinearVelocity:   1.7,
		MaxArmAngularVelocity:  2.5,
		MaxBaseLinearVelocity:  1.0,
		MaxBaseAngularVelocity: 1.5,
		MaxGripperForce:        70,
		StrictVelocityLimits:   false,
	}
	for i := range cfg.JointLimits {
		cfg.JointLimits[i] = jointLimit
	}
	cfg.ArmWorkspace.X = envelope.Limit{Min: -0.9, Max: 0.9}
	cfg.ArmWorkspace.Y = envelope.Limit{Min: -0.9, Max: 0.9}
	cfg.ArmWorkspace.Z = envelope.Limit{Min: 0.0, Max: 1.2}
	cfg.BaseWorkspace.X = envelope.Limit{Min: -5.0, Max: 5.0}
	cfg.BaseWorkspace.Y = envelope.Limit{Min: -5.0, Max: 5.0}
	return cfg
}

// buildSupervisor wires the robot's standard three-service topology
// (base_server, franka_server, controller) — spec.md §4.G's invariant
// 6 example — onto supervisor.Supervisor. The command lines are fixed
// /usr/local/bin paths; no services config file is read.
func buildSupervisor(f flags, clk clock.Clock, log logger.Logger) (*supervisor.Supervisor, error) {
	defs := []types.ServiceDefinition{
		{
			Key:     "base_server",
			Command: []string{"/usr/local/bin/base_server"},
			WorkDir: f.dataDir,
		},
		{
			Key:     "franka_server",
			Command: []string{"/usr/local/bin/franka_server"},
			WorkDir: f.dataDir,
		},
		{
			Key:       "controller",
			Command:   []string{"/usr/local/bin/controller"},
			WorkDir:   f.dataDir,
			DependsOn: []types.ServiceKey{"base_server", "franka_server"},
		},
	}
	supCfg := supervisor.DefaultConfig()
	supCfg.PIDFile = f.dataDir + "/robogate-services.pid"
	return supervisor.New(supCfg, defs, clk, log, f.features.Runtime.DryRun, nil)
}

// runScriptChild is the ROBOGATE_SCRIPT_MODE=1 entrypoint: read the
// submitted Program as a single JSON line off stdin, then run its
// steps against the parent through sdk.Client, which speaks the
// RPC shim over the remainder of stdin (replies) and stdout (requests).
func runScriptChild() error {
	stdin := bufio.NewReaderSize(os.Stdin, 64*1024)
	line, err := stdin.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read program: %w", err)
	}

	var program types.Program
	if err := json.Unmarshal(line, &program); err != nil {
		return fmt.Errorf("decode program: %w", err)
	}

	client := sdk.New(stdin, os.Stdout)
	if err := sdk.RunProgram(client, program); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
